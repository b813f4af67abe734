// Package cfg holds the control-flow graph of one procedure. Blocks live in
// an arena keyed by stable BlockIDs and edges are stored as ID lists, so a
// pass that merges blocks never leaves a caller holding a dangling edge:
// callers re-fetch blocks and successor lists by ID after any mutation.
package cfg

import (
	"errors"
	"fmt"

	"github.com/raymyers/ralph-dc/pkg/rtl"
)

// BlockID identifies a block within its graph
type BlockID int

// BBType is the structural type of a block, given by its last instruction
type BBType int

const (
	Invalid  BBType = iota
	OneWay          // unconditional jump
	TwoWay          // conditional branch
	NWay            // switch
	CallBB          // ends in a call
	Ret             // ends in a return
	Fall            // falls through to the next block
	CompJump        // computed jump
)

var typeNames = []string{"invalid", "oneway", "twoway", "nway", "call", "ret", "fall", "compjump"}

func (t BBType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "?"
}

// ParseType returns the block type with the given name
func ParseType(name string) (BBType, bool) {
	for i, n := range typeNames {
		if n == name {
			return BBType(i), true
		}
	}
	return Invalid, false
}

// ErrNoBlock is returned when an ID does not name a live block
var ErrNoBlock = errors.New("no such block")

// Block is a basic block: records executed in order, then a transfer to
// one of the successors
type Block struct {
	ID      BlockID
	Name    string
	Type    BBType
	Records []*rtl.Record
	succs   []BlockID
}

// Len returns the number of records
func (b *Block) Len() int { return len(b.Records) }

// Insert places r before index i (i == Len appends)
func (b *Block) Insert(i int, r *rtl.Record) {
	b.Records = append(b.Records, nil)
	copy(b.Records[i+1:], b.Records[i:])
	b.Records[i] = r
}

// Delete removes the record at index i
func (b *Block) Delete(i int) {
	b.Records = append(b.Records[:i], b.Records[i+1:]...)
}

// DeleteAll removes the records at all the given indices at once. Indices
// refer to positions before any removal; duplicates are ignored.
func (b *Block) DeleteAll(indices []int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	kept := b.Records[:0]
	for i, r := range b.Records {
		if !drop[i] {
			kept = append(kept, r)
		}
	}
	for i := len(kept); i < len(b.Records); i++ {
		b.Records[i] = nil
	}
	b.Records = kept
}

// Terminator returns the final record if it is a conditional branch
func (b *Block) Terminator() *rtl.Record {
	if len(b.Records) == 0 {
		return nil
	}
	last := b.Records[len(b.Records)-1]
	if !last.IsBranch() {
		return nil
	}
	return last
}

// LowAddr returns the address of the first record
func (b *Block) LowAddr() rtl.Address {
	if len(b.Records) == 0 {
		return rtl.NoAddress
	}
	return b.Records[0].Addr
}

// Graph is the CFG of one procedure
type Graph struct {
	Name   string
	blocks map[BlockID]*Block
	order  []BlockID // creation order, for deterministic output
	entry  BlockID
	nextID BlockID
}

// New creates an empty graph
func New(name string) *Graph {
	return &Graph{
		Name:   name,
		blocks: make(map[BlockID]*Block),
		nextID: 1, // IDs start at 1 so the zero value means "none"
	}
}

// AddBlock creates a block. The first block added becomes the entry.
func (g *Graph) AddBlock(name string, typ BBType, records []*rtl.Record) *Block {
	b := &Block{ID: g.nextID, Name: name, Type: typ, Records: records}
	g.nextID++
	g.blocks[b.ID] = b
	g.order = append(g.order, b.ID)
	if g.entry == 0 {
		g.entry = b.ID
	}
	return b
}

// AddEdge appends to as the next successor of from
func (g *Graph) AddEdge(from, to BlockID) error {
	b, ok := g.blocks[from]
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoBlock, from)
	}
	if _, ok := g.blocks[to]; !ok {
		return fmt.Errorf("%w: %d", ErrNoBlock, to)
	}
	b.succs = append(b.succs, to)
	return nil
}

// Block returns the live block with the given ID
func (g *Graph) Block(id BlockID) (*Block, bool) {
	b, ok := g.blocks[id]
	return b, ok
}

// Successors returns a fresh copy of the successor list of id.
// The copy is never updated; fetch it again after merging blocks.
func (g *Graph) Successors(id BlockID) []BlockID {
	b, ok := g.blocks[id]
	if !ok {
		return nil
	}
	out := make([]BlockID, len(b.succs))
	copy(out, b.succs)
	return out
}

// Predecessors returns the blocks with an edge to id, in block order
func (g *Graph) Predecessors(id BlockID) []BlockID {
	var preds []BlockID
	for _, bid := range g.order {
		b := g.blocks[bid]
		for _, s := range b.succs {
			if s == id {
				preds = append(preds, bid)
				break
			}
		}
	}
	return preds
}

// Entry returns the entry block ID
func (g *Graph) Entry() BlockID { return g.entry }

// SetEntry makes id the entry block
func (g *Graph) SetEntry(id BlockID) error {
	if _, ok := g.blocks[id]; !ok {
		return fmt.Errorf("%w: %d", ErrNoBlock, id)
	}
	g.entry = id
	return nil
}

// Blocks returns the live blocks in creation order
func (g *Graph) Blocks() []*Block {
	out := make([]*Block, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.blocks[id])
	}
	return out
}

// Len returns the number of live blocks
func (g *Graph) Len() int { return len(g.blocks) }

// Merge joins src into dst: src's records are placed in front of dst's,
// every edge into src is redirected to dst, and src is dissolved. It
// returns the number of records carried over from src.
func (g *Graph) Merge(dst, src BlockID) (int, error) {
	if dst == src {
		return 0, fmt.Errorf("cannot merge block %d into itself", src)
	}
	d, ok := g.blocks[dst]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoBlock, dst)
	}
	s, ok := g.blocks[src]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrNoBlock, src)
	}

	carried := len(s.Records)
	records := make([]*rtl.Record, 0, carried+len(d.Records))
	records = append(records, s.Records...)
	records = append(records, d.Records...)
	d.Records = records

	delete(g.blocks, src)
	for i, id := range g.order {
		if id == src {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}

	for _, b := range g.blocks {
		for i, succ := range b.succs {
			if succ == src {
				b.succs[i] = dst
			}
		}
	}
	if g.entry == src {
		g.entry = dst
	}
	return carried, nil
}
