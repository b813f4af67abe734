package lexer

// TokenType represents the type of a token
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenIllegal

	// Literals
	TokenIdent  // tmp1, SUBFLAGS8
	TokenInt    // 42, 0x45
	TokenString // "hello"
	TokenFlag   // %ZF

	// Keywords
	TokenFpush  // FPUSH
	TokenFpop   // FPOP
	TokenFtoi   // ftoi
	TokenTruncs // truncs
	TokenSar    // sar

	// Operators
	TokenPlus      // +
	TokenMinus     // -
	TokenStar      // *
	TokenDefine    // :=
	TokenAnd       // &&
	TokenOr        // ||
	TokenNot       // !
	TokenAmpersand // &
	TokenPipe      // |
	TokenCaret     // ^
	TokenTilde     // ~
	TokenShl       // <<
	TokenShr       // >>
	TokenQuestion  // ?
	TokenColon     // :
	TokenAt        // @

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
)

var tokenNames = map[TokenType]string{
	TokenEOF:       "EOF",
	TokenIllegal:   "ILLEGAL",
	TokenIdent:     "IDENT",
	TokenInt:       "INT",
	TokenString:    "STRING",
	TokenFlag:      "FLAG",
	TokenFpush:     "FPUSH",
	TokenFpop:      "FPOP",
	TokenFtoi:      "ftoi",
	TokenTruncs:    "truncs",
	TokenSar:       "sar",
	TokenPlus:      "+",
	TokenMinus:     "-",
	TokenStar:      "*",
	TokenDefine:    ":=",
	TokenAnd:       "&&",
	TokenOr:        "||",
	TokenNot:       "!",
	TokenAmpersand: "&",
	TokenPipe:      "|",
	TokenCaret:     "^",
	TokenTilde:     "~",
	TokenShl:       "<<",
	TokenShr:       ">>",
	TokenQuestion:  "?",
	TokenColon:     ":",
	TokenAt:        "@",
	TokenLParen:    "(",
	TokenRParen:    ")",
	TokenLBracket:  "[",
	TokenRBracket:  "]",
	TokenSemicolon: ";",
	TokenComma:     ",",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Token represents a lexical token
type Token struct {
	Type    TokenType
	Literal string
	Line    int
	Column  int
}

// keywords maps keyword strings to token types
var keywords = map[string]TokenType{
	"FPUSH":  TokenFpush,
	"FPOP":   TokenFpop,
	"ftoi":   TokenFtoi,
	"truncs": TokenTruncs,
	"sar":    TokenSar,
}

// LookupIdent returns the token type for an identifier (keyword or IDENT)
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return TokenIdent
}
