// Package parser implements domain.UnitParser for Python sources. It
// is a line-structured scanner, not a grammar parser: string literals
// and comments are blanked out, physical lines are joined into logical
// statements, and indentation drives a context stack. That subset is
// enough to recover imports, class and function shapes, attribute
// chains, call sites and except clauses without executing anything.
package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/archlint/archlint/internal/domain"
)

// PyParser implements domain.UnitParser.
type PyParser struct{}

func New() *PyParser {
	return &PyParser{}
}

// ParseFile reads one file and extracts its SourceUnit. Any failure
// comes back as *domain.ParseError so the caller can record it and
// keep going.
func (p *PyParser) ParseFile(absPath, relPath string) (*domain.SourceUnit, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, &domain.ParseError{Path: relPath, Reason: fmt.Sprintf("read failed: %v", err)}
	}
	return parseSource(data, relPath)
}

func parseSource(data []byte, relPath string) (*domain.SourceUnit, error) {
	lines, err := logicalLines(data, relPath)
	if err != nil {
		return nil, err
	}

	b := newFileBuilder(relPath, data)
	for _, ln := range lines {
		if err := b.consume(ln); err != nil {
			return nil, err
		}
	}
	return b.finish(), nil
}

// moduleName derives the dotted module path of a file. Package
// __init__ files name the package itself.
func moduleName(relPath string) string {
	name := strings.TrimSuffix(relPath, ".py")
	switch {
	case name == "__init__":
		name = ""
	case strings.HasSuffix(name, "/__init__"):
		name = strings.TrimSuffix(name, "/__init__")
	}
	return strings.ReplaceAll(name, "/", ".")
}

// --- logical line scanning ---

// logicalLine is one Python statement after joining continuations.
// Text has string literals blanked to "" and comments removed; indent
// is the column of the first physical line.
type logicalLine struct {
	text   string
	line   int
	indent int
}

const tabWidth = 8

// logicalLines splits the source into cleaned logical statements. It
// tracks triple-quoted strings, bracket depth and backslash
// continuations; imbalance at end of input is a parse error.
func logicalLines(data []byte, relPath string) ([]logicalLine, error) {
	raw := strings.Split(string(data), "\n")

	var (
		out        []logicalLine
		buf        strings.Builder
		startLine  int
		indent     int
		depth      int
		inTriple   string
		tripleLine int
	)

	for i, physical := range raw {
		lineNo := i + 1
		if inTriple == "" && buf.Len() == 0 {
			if strings.TrimSpace(physical) == "" {
				continue
			}
			startLine = lineNo
			indent = indentWidth(physical)
		}

		cleaned, state, err := cleanLine(physical, inTriple)
		if err != nil {
			return nil, &domain.ParseError{Path: relPath, Line: lineNo, Reason: err.Error()}
		}
		if inTriple == "" && state != "" {
			tripleLine = lineNo
		}
		inTriple = state

		depth += bracketDelta(cleaned)
		if depth < 0 {
			return nil, &domain.ParseError{Path: relPath, Line: lineNo, Reason: "unmatched closing bracket"}
		}

		continued := strings.HasSuffix(cleaned, "\\")
		if continued {
			cleaned = strings.TrimSuffix(cleaned, "\\")
		}

		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strings.TrimSpace(cleaned))

		if inTriple != "" || depth > 0 || continued {
			continue
		}

		text := strings.TrimSpace(buf.String())
		buf.Reset()
		if text == "" {
			continue
		}
		out = append(out, logicalLine{text: text, line: startLine, indent: indent})
	}

	if inTriple != "" {
		return nil, &domain.ParseError{Path: relPath, Line: tripleLine, Reason: "unterminated triple-quoted string"}
	}
	if depth > 0 {
		return nil, &domain.ParseError{Path: relPath, Line: startLine, Reason: "unclosed bracket at end of file"}
	}
	if text := strings.TrimSpace(buf.String()); text != "" {
		out = append(out, logicalLine{text: text, line: startLine, indent: indent})
	}
	return out, nil
}

func indentWidth(s string) int {
	w := 0
	for _, r := range s {
		switch r {
		case ' ':
			w++
		case '\t':
			w = (w/tabWidth + 1) * tabWidth
		default:
			return w
		}
	}
	return w
}

// cleanLine blanks string literals to "" and strips trailing comments.
// It returns the open triple-quote delimiter when the line leaves a
// triple-quoted string unterminated.
func cleanLine(s, inTriple string) (string, string, error) {
	var out strings.Builder
	i := 0
	for i < len(s) {
		if inTriple != "" {
			j := strings.Index(s[i:], inTriple)
			if j < 0 {
				return out.String(), inTriple, nil
			}
			i += j + len(inTriple)
			inTriple = ""
			continue
		}
		c := s[i]
		switch {
		case c == '#':
			return out.String(), "", nil
		case strings.HasPrefix(s[i:], `"""`) || strings.HasPrefix(s[i:], `'''`):
			delim := s[i : i+3]
			out.WriteString(`""`)
			i += 3
			j := strings.Index(s[i:], delim)
			if j < 0 {
				inTriple = delim
				continue
			}
			i += j + 3
		case c == '"' || c == '\'':
			out.WriteString(`""`)
			j, ok := closeQuote(s, i)
			if !ok {
				return "", "", fmt.Errorf("unterminated string literal")
			}
			i = j
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.String(), "", nil
}

// closeQuote returns the index just past the closing quote, honoring
// backslash escapes.
func closeQuote(s string, start int) (int, bool) {
	quote := s[start]
	for i := start + 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case quote:
			return i + 1, true
		}
	}
	return 0, false
}

func bracketDelta(s string) int {
	d := 0
	for _, c := range s {
		switch c {
		case '(', '[', '{':
			d++
		case ')', ']', '}':
			d--
		}
	}
	return d
}

// --- statement walking ---

type ctxKind int

const (
	ctxClass ctxKind = iota
	ctxDef
	ctxBlock
	ctxExcept
)

// context is one open suite on the indentation stack.
type context struct {
	indent int
	kind   ctxKind
	class  *classBuilder        // set for recorded classes
	fn     *domain.FunctionDecl // set for recorded functions and methods
	except *domain.ExceptClause // set for except suites
}

type classBuilder struct {
	decl    domain.ClassDecl
	methods []*domain.FunctionDecl
	attrs   map[string]bool
}

type fileBuilder struct {
	unit    *domain.SourceUnit
	classes []*classBuilder
	funcs   []*domain.FunctionDecl
	excepts []*domain.ExceptClause
	stack   []*context
}

func newFileBuilder(relPath string, data []byte) *fileBuilder {
	return &fileBuilder{
		unit: &domain.SourceUnit{
			Path:      relPath,
			Module:    moduleName(relPath),
			ByteLen:   len(data),
			LineCount: countLines(data),
		},
	}
}

func countLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}
	n := strings.Count(string(data), "\n")
	if data[len(data)-1] != '\n' {
		n++
	}
	return n
}

func (b *fileBuilder) consume(ln logicalLine) error {
	b.popTo(ln.indent)
	if len(b.stack) == 0 && ln.indent > 0 {
		return &domain.ParseError{Path: b.unit.Path, Line: ln.line, Reason: "unexpected indent"}
	}

	text := ln.text
	switch {
	case strings.HasPrefix(text, "import ") || strings.HasPrefix(text, "from "):
		b.unit.Imports = append(b.unit.Imports, parseImports(text, ln.line, b.insideDef())...)
	case strings.HasPrefix(text, "def ") || strings.HasPrefix(text, "async def "):
		b.openFunction(text, ln)
	case strings.HasPrefix(text, "class "):
		b.openClass(text, ln)
	case strings.HasPrefix(text, "except") && strings.HasSuffix(text, ":"):
		b.openExcept(text, ln)
	case text == "raise" || strings.HasPrefix(text, "raise ") || strings.HasPrefix(text, "raise("):
		b.markReraise()
		b.scanExpressions(text, ln)
		b.maybeOpenBlock(text, ln)
	default:
		b.recordSelfAttrs(text)
		b.scanExpressions(text, ln)
		b.maybeOpenBlock(text, ln)
	}
	return nil
}

// popTo closes every suite whose header sits at or beyond the new
// indentation. else, elif, except and finally reopen at the same
// column, which is exactly the sibling-block behavior wanted.
func (b *fileBuilder) popTo(indent int) {
	for len(b.stack) > 0 && b.stack[len(b.stack)-1].indent >= indent {
		b.stack = b.stack[:len(b.stack)-1]
	}
}

func (b *fileBuilder) push(c *context) {
	b.stack = append(b.stack, c)
	if c.kind == ctxBlock || c.kind == ctxExcept {
		b.bumpNesting()
	}
}

// bumpNesting records the block depth just created against the
// innermost recorded function.
func (b *fileBuilder) bumpNesting() {
	depth := 0
	for i := len(b.stack) - 1; i >= 0; i-- {
		c := b.stack[i]
		if c.kind == ctxDef {
			if c.fn != nil && depth > c.fn.MaxNesting {
				c.fn.MaxNesting = depth
			}
			return
		}
		depth++
	}
}

func (b *fileBuilder) insideDef() bool {
	for _, c := range b.stack {
		if c.kind == ctxDef {
			return true
		}
	}
	return false
}

func (b *fileBuilder) enclosingClass() *classBuilder {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].kind == ctxClass {
			return b.stack[i].class
		}
	}
	return nil
}

func (b *fileBuilder) openFunction(text string, ln logicalLine) {
	name, params := parseDefHeader(text)

	// Module-level defs and class-level defs are recorded; defs nested
	// inside other defs only open a scope.
	top := b.top()
	switch {
	case top == nil:
		fn := &domain.FunctionDecl{Name: name, Line: ln.line, Params: parseParams(params, false)}
		b.funcs = append(b.funcs, fn)
		b.push(&context{indent: ln.indent, kind: ctxDef, fn: fn})
	case top.kind == ctxClass && top.class != nil:
		fn := &domain.FunctionDecl{Name: name, Line: ln.line, Params: parseParams(params, true)}
		top.class.methods = append(top.class.methods, fn)
		b.push(&context{indent: ln.indent, kind: ctxDef, fn: fn})
	default:
		b.push(&context{indent: ln.indent, kind: ctxDef})
	}
}

func (b *fileBuilder) openClass(text string, ln logicalLine) {
	name, bases := parseClassHeader(text)

	if b.top() == nil {
		cb := &classBuilder{
			decl: domain.ClassDecl{
				Name:       name,
				Bases:      bases,
				Line:       ln.line,
				IsProtocol: isProtocolBase(bases),
			},
			attrs: make(map[string]bool),
		}
		b.classes = append(b.classes, cb)
		b.push(&context{indent: ln.indent, kind: ctxClass, class: cb})
		return
	}
	b.push(&context{indent: ln.indent, kind: ctxClass})
}

func (b *fileBuilder) openExcept(text string, ln logicalLine) {
	clause := &domain.ExceptClause{Exception: parseExceptExpr(text), Line: ln.line}
	b.excepts = append(b.excepts, clause)
	b.push(&context{indent: ln.indent, kind: ctxExcept, except: clause})
}

func (b *fileBuilder) markReraise() {
	for i := len(b.stack) - 1; i >= 0; i-- {
		if b.stack[i].kind == ctxExcept {
			b.stack[i].except.Reraises = true
			return
		}
	}
}

func (b *fileBuilder) maybeOpenBlock(text string, ln logicalLine) {
	if !strings.HasSuffix(text, ":") {
		return
	}
	if !isBlockKeyword(text) {
		return
	}
	b.push(&context{indent: ln.indent, kind: ctxBlock})
}

func (b *fileBuilder) top() *context {
	if len(b.stack) == 0 {
		return nil
	}
	return b.stack[len(b.stack)-1]
}

// isBlockKeyword reports whether a colon-terminated statement opens a
// control suite. The head word decides; "async" covers async with and
// async for.
func isBlockKeyword(text string) bool {
	head := text
	if i := strings.IndexAny(head, " (:"); i >= 0 {
		head = head[:i]
	}
	switch head {
	case "if", "elif", "else", "for", "while", "with", "try", "finally", "match", "case", "async":
		return true
	}
	return false
}

// recordSelfAttrs counts distinct self.<name> assignment targets for
// the innermost recorded class. Only top-level targets of a plain
// assignment count; augmented assignments and subscript or call
// positions do not create attributes.
func (b *fileBuilder) recordSelfAttrs(text string) {
	cb := b.enclosingClass()
	if cb == nil || !strings.Contains(text, "self.") {
		return
	}
	eq := assignmentIndex(text)
	if eq < 0 {
		return
	}
	for _, target := range splitTopLevel(text[:eq]) {
		target = strings.TrimSpace(target)
		if colon := topLevelIndex(target, ':'); colon >= 0 {
			target = strings.TrimSpace(target[:colon])
		}
		if m := selfTargetRe.FindStringSubmatch(target); m != nil {
			cb.attrs[m[1]] = true
		}
	}
}

// assignmentIndex finds the first statement-level = that is not part
// of a comparison, augmented assignment or walrus. Returns -1 when the
// statement assigns nothing.
func assignmentIndex(text string) int {
	depth := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '=':
			if depth > 0 {
				continue
			}
			if i+1 < len(text) && text[i+1] == '=' {
				i++
				continue
			}
			if i > 0 && strings.ContainsRune("=!<>+-*/%&|^:@", rune(text[i-1])) {
				continue
			}
			return i
		}
	}
	return -1
}

var (
	selfTargetRe = regexp.MustCompile(`^self\.([A-Za-z_][A-Za-z0-9_]*)$`)
	accessRe     = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)+`)
	callRe       = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// pyKeywords are names that look like calls when followed by a paren.
var pyKeywords = map[string]bool{
	"if": true, "elif": true, "while": true, "for": true, "return": true,
	"yield": true, "assert": true, "del": true, "not": true, "and": true,
	"or": true, "in": true, "is": true, "lambda": true, "with": true,
	"except": true, "raise": true, "await": true, "match": true, "case": true,
}

// scanExpressions pulls attribute chains and call sites out of an
// ordinary statement line.
func (b *fileBuilder) scanExpressions(text string, ln logicalLine) {
	for _, m := range accessRe.FindAllString(text, -1) {
		segs := strings.Split(m, ".")
		b.unit.Accesses = append(b.unit.Accesses, domain.AttributeAccess{
			Receiver: segs[0],
			Chain:    segs[1:],
			Line:     ln.line,
		})
	}

	inWith := strings.HasPrefix(text, "with ") || strings.HasPrefix(text, "async with ")
	for _, m := range callRe.FindAllStringSubmatchIndex(text, -1) {
		name := text[m[2]:m[3]]
		if pyKeywords[name] {
			continue
		}
		b.unit.Calls = append(b.unit.Calls, domain.CallSite{Name: name, Line: ln.line, InWith: inWith})
	}
}

func (b *fileBuilder) finish() *domain.SourceUnit {
	for _, fn := range b.funcs {
		b.unit.Functions = append(b.unit.Functions, *fn)
	}
	for _, cb := range b.classes {
		decl := cb.decl
		for _, m := range cb.methods {
			decl.Methods = append(decl.Methods, *m)
		}
		decl.AttributeCount = len(cb.attrs)
		b.unit.Classes = append(b.unit.Classes, decl)
	}
	for _, ex := range b.excepts {
		b.unit.Excepts = append(b.unit.Excepts, *ex)
	}
	return b.unit
}

// --- header parsing ---

// parseDefHeader splits "def name(params) -> ret:" into name and the
// raw parameter text.
func parseDefHeader(text string) (string, string) {
	text = strings.TrimPrefix(text, "async ")
	text = strings.TrimPrefix(text, "def ")
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return strings.TrimSuffix(strings.TrimSpace(text), ":"), ""
	}
	name := strings.TrimSpace(text[:open])
	end := matchParen(text, open)
	if end < 0 {
		return name, text[open+1:]
	}
	return name, text[open+1 : end]
}

// matchParen returns the index of the parenthesis closing the one at
// open, or -1.
func matchParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseParams splits a parameter list into declarations. The receiver
// parameter of methods is dropped, as are the bare * and / markers.
func parseParams(raw string, isMethod bool) []domain.Param {
	pieces := splitTopLevel(raw)
	var params []domain.Param
	for i, piece := range pieces {
		piece = strings.TrimSpace(piece)
		if piece == "" || piece == "*" || piece == "/" {
			continue
		}
		piece = strings.TrimLeft(piece, "*")

		var p domain.Param
		if eq := topLevelIndex(piece, '='); eq >= 0 {
			p.Default = strings.TrimSpace(piece[eq+1:])
			piece = strings.TrimSpace(piece[:eq])
		}
		if colon := topLevelIndex(piece, ':'); colon >= 0 {
			p.Annotation = strings.TrimSpace(piece[colon+1:])
			piece = strings.TrimSpace(piece[:colon])
		}
		p.Name = piece

		if i == 0 && isMethod && (p.Name == "self" || p.Name == "cls") {
			continue
		}
		params = append(params, p)
	}
	return params
}

// splitTopLevel splits on commas outside any bracket pair.
func splitTopLevel(s string) []string {
	var (
		out   []string
		depth int
		start int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}

// topLevelIndex finds the first occurrence of c outside brackets.
func topLevelIndex(s string, c byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		default:
			if s[i] == c && depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseClassHeader splits "class Name(Base, meta=X):" into the name
// and its positional bases.
func parseClassHeader(text string) (string, []string) {
	text = strings.TrimPrefix(text, "class ")
	text = strings.TrimSuffix(strings.TrimSpace(text), ":")
	open := strings.IndexByte(text, '(')
	if open < 0 {
		return strings.TrimSpace(text), nil
	}
	name := strings.TrimSpace(text[:open])
	end := matchParen(text, open)
	if end < 0 {
		end = len(text)
	}
	var bases []string
	for _, piece := range splitTopLevel(text[open+1 : end]) {
		piece = strings.TrimSpace(piece)
		if piece == "" || strings.Contains(piece, "=") {
			continue
		}
		bases = append(bases, piece)
	}
	return name, bases
}

// isProtocolBase reports whether any base names typing.Protocol,
// including subscripted generics.
func isProtocolBase(bases []string) bool {
	for _, base := range bases {
		if i := strings.IndexByte(base, '['); i >= 0 {
			base = base[:i]
		}
		if base == "Protocol" || strings.HasSuffix(base, ".Protocol") {
			return true
		}
	}
	return false
}

// parseExceptExpr extracts the caught expression from an except
// header: "" for a bare except, the expression text otherwise.
func parseExceptExpr(text string) string {
	expr := strings.TrimPrefix(text, "except")
	expr = strings.TrimPrefix(expr, "*")
	expr = strings.TrimSuffix(strings.TrimSpace(expr), ":")
	if i := strings.Index(expr, " as "); i >= 0 {
		expr = expr[:i]
	}
	return strings.TrimSpace(expr)
}

// --- import parsing ---

// parseImports turns one import statement into its bindings. A
// from-import yields one entry per imported symbol so aliases stay
// attached to the name they bind.
func parseImports(text string, line int, deferred bool) []domain.ImportStmt {
	if strings.HasPrefix(text, "import ") {
		return parsePlainImport(strings.TrimPrefix(text, "import "), line, deferred)
	}

	rest := strings.TrimPrefix(text, "from ")
	idx := strings.Index(rest, " import ")
	if idx < 0 {
		return nil
	}
	source := strings.TrimSpace(rest[:idx])
	names := strings.TrimSpace(rest[idx+len(" import "):])
	names = strings.TrimPrefix(names, "(")
	names = strings.TrimSuffix(names, ")")

	dots := 0
	for dots < len(source) && source[dots] == '.' {
		dots++
	}
	module := source[dots:]
	kind := domain.ImportAbsolute
	if dots > 0 {
		kind = domain.ImportRelative
	}

	if strings.TrimSpace(names) == "*" {
		return []domain.ImportStmt{{
			Module: module, Kind: domain.ImportWildcard, Dots: dots, Line: line, Deferred: deferred,
		}}
	}

	var stmts []domain.ImportStmt
	for _, piece := range strings.Split(names, ",") {
		name, alias := splitAlias(piece)
		if name == "" {
			continue
		}
		stmts = append(stmts, domain.ImportStmt{
			Module:   module,
			Symbols:  []string{name},
			Alias:    alias,
			Kind:     kind,
			Dots:     dots,
			Line:     line,
			Deferred: deferred,
		})
	}
	return stmts
}

func parsePlainImport(names string, line int, deferred bool) []domain.ImportStmt {
	var stmts []domain.ImportStmt
	for _, piece := range strings.Split(names, ",") {
		name, alias := splitAlias(piece)
		if name == "" {
			continue
		}
		stmts = append(stmts, domain.ImportStmt{
			Module:   name,
			Alias:    alias,
			Kind:     domain.ImportAbsolute,
			Line:     line,
			Deferred: deferred,
		})
	}
	return stmts
}

func splitAlias(piece string) (string, string) {
	piece = strings.TrimSpace(piece)
	if i := strings.Index(piece, " as "); i >= 0 {
		return strings.TrimSpace(piece[:i]), strings.TrimSpace(piece[i+len(" as "):])
	}
	return piece, ""
}
