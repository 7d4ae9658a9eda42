// Package pdfprocessor turns the annual ADEI report PDF into the JSON country
// dataset.
//
// processor.go implements the Pipeline organism that orchestrates the whole
// extraction run. It composes the following molecules:
//   - extractor.go: Extractor for PDF text extraction
//   - chunker.go: Chunker for splitting the report into overlapping chunks
//   - sections.go: IsolateCountryChunks for per-country context isolation
//   - country_extractor.go: CountryExtractor for LLM structured extraction
package pdfprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"adei_backend/adei"
	"adei_backend/core"
	"adei_backend/logging"
	"adei_backend/metrics"
)

// ErrNoCountriesExtracted is returned when a run finishes without a single
// successfully extracted country. Partial failures are tolerated; total
// failure is not.
var ErrNoCountriesExtracted = errors.New("no country data could be extracted")

// PipelineConfig holds configuration for a full extraction run.
type PipelineConfig struct {
	// Extractor configuration for the PDF stage.
	ExtractorConfig ExtractorConfig

	// Chunker configuration for the splitting stage.
	ChunkerConfig ChunkerConfig

	// CountryExtractorConfig holds the LLM parameters.
	CountryExtractorConfig CountryExtractorConfig

	// Countries is the ordered member list to walk. Defaults to
	// adei.Countries. The order matters: each country's section ends where
	// the next one's begins.
	Countries []string

	// MaxConcurrent is the number of countries extracted in parallel.
	// Each costs one in-flight LLM call. Defaults to 3.
	MaxConcurrent int
}

// DefaultPipelineConfig returns sensible default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ExtractorConfig:        DefaultExtractorConfig(),
		ChunkerConfig:          DefaultChunkerConfig(),
		CountryExtractorConfig: DefaultCountryExtractorConfig(),
		Countries:              adei.Countries,
		MaxConcurrent:          3,
	}
}

// PipelineConfigFromCore maps the application configuration onto a
// PipelineConfig, so the extract command and the validation suite build
// identical pipelines.
func PipelineConfigFromCore(cfg *core.Config) PipelineConfig {
	pc := DefaultPipelineConfig()
	pc.ChunkerConfig.ChunkSize = cfg.ChunkSize
	pc.ChunkerConfig.ChunkOverlap = cfg.ChunkOverlap
	pc.CountryExtractorConfig.Temperature = cfg.ExtractionTemperature
	pc.CountryExtractorConfig.MaxTokens = cfg.ExtractionMaxTokens
	if cfg.MaxConcurrent > 0 {
		pc.MaxConcurrent = cfg.MaxConcurrent
	}
	return pc
}

// CountryOutcome records how one country fared during a run.
type CountryOutcome struct {
	// Country is the member-list name the outcome belongs to.
	Country string

	// Record is the extracted record, nil when the country was skipped or
	// failed.
	Record *adei.CountryData

	// ChunkCount is the number of report chunks isolated for the country.
	ChunkCount int

	// Usage is the token usage spent on the country.
	Usage core.Usage

	// Retried is true when the record came from the parse-error retry.
	Retried bool

	// Duration is the wall time spent on the country's LLM calls.
	Duration time.Duration

	// Skipped is true when no report content mentioned the country.
	Skipped bool

	// Err is the extraction failure, nil on success or skip.
	Err error
}

// PipelineResult contains the complete result of an extraction run.
type PipelineResult struct {
	// Records holds the successfully extracted records in member order.
	Records []adei.CountryData

	// Outcomes holds one entry per walked country, in member order.
	Outcomes []CountryOutcome

	// Extracted, Skipped and Failed count the outcomes.
	Extracted int
	Skipped   int
	Failed    int

	// ExtractionResult contains PDF-stage detail, nil for text runs.
	ExtractionResult *ExtractionResult

	// TotalChunks is the number of chunks the report split into.
	TotalChunks int

	// Usage is the token usage summed across all countries.
	Usage core.Usage

	// Duration is the total wall time of the run.
	Duration time.Duration
}

// ProgressCallback is called to report run progress. stage is the current
// stage name ("extraction", "chunking", "countries"), progress is 0.0-1.0
// (-1 when unknown), and message is a human-readable status line.
type ProgressCallback func(stage string, progress float64, message string)

// Pipeline orchestrates PDF extraction, chunking, section isolation and
// per-country LLM extraction into one run.
type Pipeline struct {
	config           PipelineConfig
	extractor        *Extractor
	chunker          *Chunker
	countryExtractor *CountryExtractor
	progress         ProgressCallback
	log              *logging.Logger
}

// NewPipeline creates a Pipeline with the given configuration and completion
// client.
//
// Example:
//
//	client := core.NewAIClient(cfg, log)
//	pipeline := NewPipeline(PipelineConfigFromCore(cfg), client, log)
//	result, err := pipeline.Run(ctx, cfg.PDFPath)
func NewPipeline(config PipelineConfig, completer core.Completer, log *logging.Logger) *Pipeline {
	if len(config.Countries) == 0 {
		config.Countries = adei.Countries
	}
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 1
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("pipeline")
	return &Pipeline{
		config:           config,
		extractor:        NewExtractor(config.ExtractorConfig),
		chunker:          NewChunker(config.ChunkerConfig),
		countryExtractor: NewCountryExtractor(config.CountryExtractorConfig, completer, log),
		log:              log,
	}
}

// SetProgressCallback sets or updates the progress callback.
func (p *Pipeline) SetProgressCallback(progress ProgressCallback) {
	p.progress = progress
}

// Run extracts the report at pdfPath and walks the member list, producing a
// record per country. Countries with no matching content are skipped with a
// warning and countries whose replies cannot be parsed are counted as failed;
// the run carries on either way. The returned result always reflects every
// country walked, and the error is non-nil only when the run as a whole
// failed: unreadable PDF, cancelled context, or zero successful countries.
func (p *Pipeline) Run(ctx context.Context, pdfPath string) (*PipelineResult, error) {
	start := time.Now()

	p.reportProgress("extraction", 0.0, "Reading report PDF...")
	extractStart := time.Now()

	extraction, err := p.extractor.Extract(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("reading report %s: %w", pdfPath, err)
	}
	metrics.RecordExtractionPages(extraction.ExtractedPages)
	p.log.Infow("report text extracted",
		"path", pdfPath,
		"pages", extraction.ExtractedPages,
		"estimated_tokens", extraction.EstimatedTokens,
		"duration", time.Since(extractStart).String(),
	)
	p.reportProgress("extraction", 1.0, fmt.Sprintf("Extracted %d pages, ~%d tokens",
		extraction.ExtractedPages, extraction.EstimatedTokens))

	result, err := p.runFromText(ctx, extraction.Text)
	if result != nil {
		result.ExtractionResult = extraction
		result.Duration = time.Since(start)
	}
	return result, err
}

// RunFromText runs the chunking and country stages over pre-extracted report
// text. Used when the text is already available, and by tests that have no
// PDF fixture.
func (p *Pipeline) RunFromText(ctx context.Context, text string) (*PipelineResult, error) {
	start := time.Now()
	result, err := p.runFromText(ctx, text)
	if result != nil {
		result.Duration = time.Since(start)
	}
	return result, err
}

func (p *Pipeline) runFromText(ctx context.Context, text string) (*PipelineResult, error) {
	p.reportProgress("chunking", 0.0, "Splitting report into chunks...")

	chunkerResult := p.chunker.SplitIntoChunks(text)
	chunks := ChunksToStrings(chunkerResult)
	if len(chunks) == 0 {
		return nil, ErrNoPDFContent
	}
	p.reportProgress("chunking", 1.0, fmt.Sprintf("Created %d chunks", chunkerResult.TotalChunks))

	result := &PipelineResult{
		TotalChunks: chunkerResult.TotalChunks,
	}
	result.Outcomes = p.extractCountries(ctx, chunks)

	for _, outcome := range result.Outcomes {
		switch {
		case outcome.Record != nil:
			result.Extracted++
			result.Records = append(result.Records, *outcome.Record)
		case outcome.Skipped:
			result.Skipped++
		default:
			result.Failed++
		}
		result.Usage = sumUsage(result.Usage, outcome.Usage)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.Extracted == 0 {
		return result, ErrNoCountriesExtracted
	}
	return result, nil
}

// countryJob is one unit of work for the extraction workers: a country and
// its successor in the member walk.
type countryJob struct {
	index int
	name  string
	next  string
}

// extractCountries walks the member list with a pool of MaxConcurrent
// workers. Outcomes are written to distinct indices, so the only shared
// state is the progress tracker.
func (p *Pipeline) extractCountries(ctx context.Context, chunks []string) []CountryOutcome {
	countries := p.config.Countries
	outcomes := make([]CountryOutcome, len(countries))
	tracker := core.NewProgressTracker(len(countries))

	jobs := make(chan countryJob, len(countries))
	var wg sync.WaitGroup

	for w := 0; w < p.config.MaxConcurrent; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes[job.index] = p.extractOne(ctx, job, chunks, tracker)
			}
		}()
	}

	for i, name := range countries {
		job := countryJob{index: i, name: name}
		if i+1 < len(countries) {
			job.next = countries[i+1]
		}
		jobs <- job
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// extractOne isolates a country's section and extracts its record, recording
// the outcome against the tracker.
func (p *Pipeline) extractOne(ctx context.Context, job countryJob, chunks []string, tracker *core.ProgressTracker) CountryOutcome {
	outcome := CountryOutcome{Country: job.name}

	if err := ctx.Err(); err != nil {
		outcome.Err = err
		tracker.MarkFailed()
		return outcome
	}

	tracker.SetCurrent(job.name)

	section := IsolateCountryChunks(chunks, job.name, job.next)
	outcome.ChunkCount = len(section)
	if len(section) == 0 {
		outcome.Skipped = true
		p.log.Warnw("no report content found for country, skipping", "country", job.name)
		tracker.MarkFailed()
		p.reportCountryProgress(tracker, fmt.Sprintf("No content for %s, skipped", job.name))
		return outcome
	}

	start := time.Now()
	extraction, err := p.countryExtractor.ExtractCountry(ctx, job.name, SectionContext(section))
	outcome.Duration = time.Since(start)
	if err != nil {
		outcome.Err = err
		metrics.RecordCountryExtraction(metrics.TaskStatusError)
		p.log.Errorw("country extraction failed",
			"country", job.name,
			"chunks", len(section),
			"error", err.Error(),
		)
		tracker.MarkFailed()
		p.reportCountryProgress(tracker, fmt.Sprintf("Failed %s: %v", job.name, err))
		return outcome
	}

	outcome.Record = extraction.Record
	metrics.RecordCountryExtraction(metrics.TaskStatusSuccess)
	outcome.Usage = extraction.Usage
	outcome.Retried = extraction.Retried
	p.log.Infow("country extracted",
		"country", job.name,
		"chunks", len(section),
		"retried", extraction.Retried,
		"total_tokens", extraction.Usage.TotalTokens,
		"duration", outcome.Duration.String(),
	)
	tracker.MarkCompleted()
	p.reportCountryProgress(tracker, fmt.Sprintf("Extracted %s", job.name))

	return outcome
}

// reportCountryProgress emits a countries-stage progress event from the
// tracker's current counts.
func (p *Pipeline) reportCountryProgress(tracker *core.ProgressTracker, message string) {
	info := tracker.Progress()
	fraction := info.Percent / 100
	if info.Percent < 0 {
		fraction = -1
	}
	p.reportProgress("countries", fraction,
		fmt.Sprintf("%s (%d/%d)", message, tracker.Completed()+tracker.Failed(), tracker.Total()))
}

// reportProgress calls the progress callback if set.
func (p *Pipeline) reportProgress(stage string, progress float64, message string) {
	if p.progress != nil {
		p.progress(stage, progress, message)
	}
}
