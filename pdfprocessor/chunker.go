// Package pdfprocessor turns the annual ADEI report PDF into the JSON country
// dataset.
//
// chunker.go implements the Chunker molecule that splits report text into
// overlapping character chunks the section splitter walks. It composes:
//   - atoms.go: EstimateTokenCount for token estimation
package pdfprocessor

import (
	"strings"
)

// ChunkerConfig holds configuration for text chunking.
type ChunkerConfig struct {
	// ChunkSize is the target maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the number of characters carried over from the end of
	// one chunk into the start of the next, so a country section that
	// straddles a boundary is still visible in both chunks.
	ChunkOverlap int

	// Separators are tried in order when splitting: text is divided at the
	// first separator present, and pieces still longer than ChunkSize are
	// re-split with the remaining separators. The empty string means a hard
	// cut at ChunkSize. Defaults to paragraph, line, word, hard cut.
	Separators []string
}

// DefaultChunkerConfig returns the chunking parameters the extraction
// pipeline was tuned with: 1000-character chunks with 100 characters of
// overlap, splitting at paragraph boundaries first.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		ChunkSize:    1000,
		ChunkOverlap: 100,
		Separators:   []string{"\n\n", "\n", " ", ""},
	}
}

// ChunkResult represents a single chunk with metadata.
type ChunkResult struct {
	// Text is the chunk content
	Text string

	// Index is the 0-based chunk index
	Index int

	// EstimatedTokens is the estimated token count for this chunk
	EstimatedTokens int
}

// ChunkerResult contains all chunks and metadata from a chunking operation.
type ChunkerResult struct {
	// Chunks is the list of text chunks
	Chunks []ChunkResult

	// TotalChunks is the number of chunks produced
	TotalChunks int

	// TotalTokensEstimate is the total estimated tokens across all chunks
	TotalTokensEstimate int

	// OriginalTokensEstimate is the estimated tokens in the original text
	OriginalTokensEstimate int
}

// Chunker splits text into overlapping chunks at natural boundaries.
//
// Thread-Safety:
//   - Chunker is safe for concurrent use (stateless)
type Chunker struct {
	config ChunkerConfig
}

// NewChunker creates a new Chunker with the given configuration.
// Zero or negative sizes fall back to defaults, and an overlap that is not
// smaller than the chunk size is clamped so chunking always advances.
func NewChunker(config ChunkerConfig) *Chunker {
	defaults := DefaultChunkerConfig()
	if config.ChunkSize <= 0 {
		config.ChunkSize = defaults.ChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize - 1
	}
	if len(config.Separators) == 0 {
		config.Separators = defaults.Separators
	}
	return &Chunker{config: config}
}

// NewDefaultChunker creates a Chunker with default configuration.
func NewDefaultChunker() *Chunker {
	return NewChunker(DefaultChunkerConfig())
}

// SplitIntoChunks divides text into chunks of at most ChunkSize characters,
// preferring paragraph and line boundaries and carrying ChunkOverlap
// characters of trailing context into each following chunk.
//
// Returns ChunkerResult with chunks and metadata, never an error.
// Empty input returns an empty result.
func (c *Chunker) SplitIntoChunks(text string) *ChunkerResult {
	result := &ChunkerResult{
		Chunks:                 make([]ChunkResult, 0),
		OriginalTokensEstimate: EstimateTokenCount(text),
	}

	if strings.TrimSpace(text) == "" {
		return result
	}

	pieces := c.splitRecursive(text, c.config.Separators)
	chunks := c.mergePieces(pieces)

	for i, chunk := range chunks {
		result.Chunks = append(result.Chunks, ChunkResult{
			Text:            chunk,
			Index:           i,
			EstimatedTokens: EstimateTokenCount(chunk),
		})
		result.TotalTokensEstimate += EstimateTokenCount(chunk)
	}
	result.TotalChunks = len(result.Chunks)

	return result
}

// splitRecursive divides text at the first separator present, re-splitting
// any piece still longer than ChunkSize with the remaining separators. Each
// piece keeps its trailing separator so chunks reassemble to the original
// text when pieces are concatenated.
func (c *Chunker) splitRecursive(text string, separators []string) []string {
	if text == "" {
		return nil
	}

	// Choose the first separator that occurs in the text; the empty string
	// is the terminal hard cut.
	sep := ""
	rest := separators
	for i, s := range separators {
		if s == "" || strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return c.cutByLength(text)
	}

	parts := strings.Split(text, sep)
	var pieces []string
	for i, part := range parts {
		if i < len(parts)-1 {
			part += sep
		}
		if strings.TrimSpace(part) == "" {
			continue
		}
		if len(part) <= c.config.ChunkSize {
			pieces = append(pieces, part)
			continue
		}
		pieces = append(pieces, c.splitRecursive(part, rest)...)
	}
	return pieces
}

// cutByLength hard-cuts text into ChunkSize slices. Last resort for text
// with no usable separator, e.g. a table rendered without spaces.
func (c *Chunker) cutByLength(text string) []string {
	var pieces []string
	for len(text) > c.config.ChunkSize {
		pieces = append(pieces, text[:c.config.ChunkSize])
		text = text[c.config.ChunkSize:]
	}
	if text != "" {
		pieces = append(pieces, text)
	}
	return pieces
}

// mergePieces greedily concatenates pieces into chunks of at most ChunkSize
// characters. When a chunk is emitted, trailing pieces totalling at most
// ChunkOverlap characters are retained to start the next chunk, and enough
// are dropped that the incoming piece still fits.
func (c *Chunker) mergePieces(pieces []string) []string {
	var chunks []string
	var window []string
	windowLen := 0

	flush := func() {
		if windowLen == 0 {
			return
		}
		chunk := strings.TrimSpace(strings.Join(window, ""))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
	}

	for _, piece := range pieces {
		pieceLen := len(piece)
		if windowLen > 0 && windowLen+pieceLen > c.config.ChunkSize {
			flush()

			// Keep a tail of the window as overlap for the next chunk.
			for len(window) > 0 &&
				(windowLen > c.config.ChunkOverlap || windowLen+pieceLen > c.config.ChunkSize) {
				windowLen -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		windowLen += pieceLen
	}
	flush()

	return chunks
}

// EstimateChunkCount returns an estimate of how many chunks the text will
// produce. This is useful for progress reporting before actually chunking.
func (c *Chunker) EstimateChunkCount(text string) int {
	if text == "" {
		return 0
	}
	if len(text) <= c.config.ChunkSize {
		return 1
	}
	stride := c.config.ChunkSize - c.config.ChunkOverlap
	if stride <= 0 {
		stride = 1
	}
	return (len(text) + stride - 1) / stride
}

// ChunksToStrings extracts just the text content from a ChunkerResult.
// This is a convenience for when metadata is not needed.
func ChunksToStrings(result *ChunkerResult) []string {
	if result == nil || len(result.Chunks) == 0 {
		return nil
	}

	texts := make([]string, len(result.Chunks))
	for i, chunk := range result.Chunks {
		texts[i] = chunk.Text
	}
	return texts
}
