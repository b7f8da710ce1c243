// Package server provides a language server for orion assembly listings.
package server

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/orion/asm"
	"github.com/chazu/orion/pkg/bytecode"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "orion-lsp"

var log = commonlog.GetLogger("orion.lsp")

// listingKeys are the top-level tables and arrays of a listing.
var listingKeys = []string{"symbols", "constants", "constructors", "chunks", "instructions", "matches"}

// LspServer serves diagnostics, hover and completion for listing files.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "orion LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{
		TriggerCharacters: []string{"\""},
	}

	capabilities.HoverProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	s.mu.Lock()
	s.docs = make(map[string]string)
	s.mu.Unlock()
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.setDocument(uri, text)
	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.setDocument(uri, whole.Text)
			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) setDocument(uri protocol.DocumentUri, text string) {
	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return complete(prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return hover(word), nil
}

// complete returns mnemonics and listing keys starting with prefix.
func complete(prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	for _, op := range bytecode.AllOpcodes() {
		name := op.String()
		if !strings.HasPrefix(strings.ToLower(name), lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindKeyword
		detail := operandSignature(op)
		nameCopy := name
		items = append(items, protocol.CompletionItem{
			Label:      name,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &nameCopy,
		})
	}

	for _, key := range listingKeys {
		if !strings.HasPrefix(key, lowerPrefix) {
			continue
		}
		kind := protocol.CompletionItemKindProperty
		detail := "listing section"
		keyCopy := key
		items = append(items, protocol.CompletionItem{
			Label:      key,
			Kind:       &kind,
			Detail:     &detail,
			InsertText: &keyCopy,
		})
	}

	return items
}

// hover describes the opcode named by word, in any accepted spelling.
func hover(word string) *protocol.Hover {
	op, ok := bytecode.LookupMnemonic(word)
	if !ok {
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** `%s`\n\n", op, operandSignature(op))
	fmt.Fprintf(&b, "Tag `0x%02X`, %d bytes encoded", byte(op), op.InstructionLen())

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

func operandSignature(op bytecode.Opcode) string {
	widths := bytecode.GetOpcodeInfo(op).Operands
	if len(widths) == 0 {
		return op.String()
	}
	parts := make([]string, len(widths))
	for i, w := range widths {
		parts[i] = fmt.Sprintf("u%d", 8*w)
	}
	return op.String() + " " + strings.Join(parts, " ")
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	diagnostics := diagnose(text)
	if len(diagnostics) > 0 {
		log.Debugf("%s: %s", uri, diagnostics[0].Message)
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// diagnose assembles text and reports the first error, if any.
func diagnose(text string) []protocol.Diagnostic {
	_, err := asm.Parse([]byte(text))
	if err == nil {
		return []protocol.Diagnostic{}
	}

	line := errorLine(text, err)
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    lineRange(text, line),
		Severity: &severity,
		Source:   &source,
		Message:  err.Error(),
	}}
}

// errorSection matches the section path that prefixes assembly errors,
// e.g. "chunks" in "chunks[1].instructions[0]: ...".
var errorSection = regexp.MustCompile(`^([a-z]+)\[\d+\]`)

// errorLine returns the 0-based line an error refers to. TOML syntax
// errors carry their own position; assembly errors point at the line that
// opens the named section.
func errorLine(text string, err error) int {
	var perr toml.ParseError
	if errors.As(err, &perr) && perr.Position.Line > 0 {
		return perr.Position.Line - 1
	}

	m := errorSection.FindStringSubmatch(err.Error())
	if m == nil {
		return 0
	}
	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "[")
		if strings.HasPrefix(line, m[1]) {
			rest := strings.TrimSpace(line[len(m[1]):])
			if strings.HasPrefix(rest, "=") || strings.HasPrefix(rest, "]") || strings.HasPrefix(rest, ".") {
				return i
			}
		}
	}
	return 0
}

func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	end := 0
	if line < len(lines) {
		end = len(lines[line])
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: 0},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(end)},
	}
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := min(int(pos.Character), len(line))

	start := col
	for start > 0 && isWordByte(line[start-1]) {
		start--
	}

	end := col
	for end < len(line) && isWordByte(line[end]) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func isWordByte(c byte) bool {
	ch := rune(c)
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

func boolPtr(b bool) *bool {
	return &b
}
