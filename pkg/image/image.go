// Package image loads a program image from YAML: its symbols, the decoded
// instructions around the entry point, and the control-flow graphs of its
// procedures with their records. It stands in for a binary loader and
// decoding front end, and can write the legalized graphs back out.
package image

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// ErrFormat is returned for an image that does not describe a valid program
var ErrFormat = errors.New("invalid program image")

// Addr is an address written in hex. "none" is a computed call target.
type Addr rtl.Address

const none = "none"

// UnmarshalYAML accepts decimal, 0x-prefixed hex or none
func (a *Addr) UnmarshalYAML(n *yaml.Node) error {
	if n.Value == none {
		*a = Addr(rtl.NoAddress)
		return nil
	}
	v, err := strconv.ParseUint(n.Value, 0, 32)
	if err != nil {
		return fmt.Errorf("%w: line %d: bad address %q", ErrFormat, n.Line, n.Value)
	}
	*a = Addr(v)
	return nil
}

// MarshalYAML writes the address in hex
func (a Addr) MarshalYAML() (any, error) {
	if rtl.Address(a) == rtl.NoAddress {
		return none, nil
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("0x%x", uint32(a))}, nil
}

// Image is a program
type Image struct {
	Entry      Addr        `yaml:"entry"`
	Symbols    []Symbol    `yaml:"symbols,omitempty"`
	Code       []Inst      `yaml:"code,omitempty"`
	Procedures []Procedure `yaml:"procedures,omitempty"`

	code map[rtl.Address]int
}

// Symbol names an address
type Symbol struct {
	Addr Addr   `yaml:"addr"`
	Name string `yaml:"name"`
}

// Inst is a decoded instruction of the startup code
type Inst struct {
	Addr Addr     `yaml:"addr"`
	Size int      `yaml:"size"`
	Call *Addr    `yaml:"call,omitempty"`
	RTL  []string `yaml:"rtl,omitempty"`
}

// Procedure is the control-flow graph of one procedure
type Procedure struct {
	Name   string  `yaml:"name"`
	Entry  string  `yaml:"entry,omitempty"`
	Blocks []Block `yaml:"blocks"`
}

// Block is a basic block
type Block struct {
	Name    string   `yaml:"name"`
	Type    string   `yaml:"type"`
	Succs   []string `yaml:"succs,omitempty,flow"`
	Records []Record `yaml:"records"`
}

// Record is one instruction's effect. Call and JCond select a call or a
// conditional branch record; otherwise the record is ordinary.
type Record struct {
	Addr  Addr     `yaml:"addr"`
	RTL   []string `yaml:"rtl,omitempty"`
	Call  *Addr    `yaml:"call,omitempty"`
	JCond string   `yaml:"jcond,omitempty"`
	Dest  *Addr    `yaml:"dest,omitempty"`
	Float bool     `yaml:"float,omitempty"`
}

// Load reads an image file
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	img, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Parse decodes an image. Unknown keys are rejected.
func Parse(data []byte) (*Image, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var img Image
	if err := dec.Decode(&img); err != nil {
		if errors.Is(err, ErrFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &img, nil
}

// Marshal encodes the image as YAML
func (img *Image) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(img); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Procedure returns the procedure with the given name
func (img *Image) Procedure(name string) (*Procedure, bool) {
	for i := range img.Procedures {
		if img.Procedures[i].Name == name {
			return &img.Procedures[i], true
		}
	}
	return nil, false
}

// SymbolAt returns the name of the symbol at addr
func (img *Image) SymbolAt(addr rtl.Address) (string, bool) {
	for _, s := range img.Symbols {
		if rtl.Address(s.Addr) == addr {
			return s.Name, true
		}
	}
	return "", false
}

// AddressOf returns the address of the named symbol
func (img *Image) AddressOf(name string) (rtl.Address, bool) {
	for _, s := range img.Symbols {
		if s.Name == name {
			return rtl.Address(s.Addr), true
		}
	}
	return rtl.NoAddress, false
}
