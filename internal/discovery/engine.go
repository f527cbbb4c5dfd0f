package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/IshaanNene/GapFill/internal/config"
	"github.com/IshaanNene/GapFill/internal/fetcher"
	"github.com/IshaanNene/GapFill/internal/types"
)

// Stage is a state of the locate sequence. Each transition happens only
// when the previous stage failed to produce a candidate.
type Stage int

const (
	StageClassify Stage = iota
	StageSearchSKU
	StageSearchName
	StageFallback
	StageResolved
	StageNotFound
)

var stageNames = [...]string{
	StageClassify:   "classify",
	StageSearchSKU:  "search_sku",
	StageSearchName: "search_name",
	StageFallback:   "fallback",
	StageResolved:   "resolved",
	StageNotFound:   "not_found",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// MarshalText encodes the stage by name.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Step records one network step taken while locating a product.
type Step struct {
	Stage Stage  `json:"stage"`
	URL   string `json:"url"`
	OK    bool   `json:"ok"`
	Found bool   `json:"found"`
	Rule  string `json:"rule,omitempty"`
}

// Resolution is the full outcome of a locate call.
type Resolution struct {
	URL      string             `json:"url,omitempty"`
	Found    bool               `json:"found"`
	By       Stage              `json:"by"`
	Platform types.PlatformKind `json:"platform"`
	Rule     string             `json:"rule,omitempty"`
	Steps    []Step             `json:"steps,omitempty"`
}

// Engine resolves (site, name, sku) to a product page URL.
// It holds no per-row state and is safe for concurrent use.
type Engine struct {
	fetcher    fetcher.Fetcher
	classifier *Classifier
	queries    *QueryBuilder
	links      *LinkExtractor
	fallback   *ExternalSearch
	logger     *slog.Logger
}

// Option configures the Engine.
type Option func(*Engine)

// WithClassifier replaces the platform rule table.
func WithClassifier(c *Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithQueryBuilder replaces the search path table.
func WithQueryBuilder(q *QueryBuilder) Option {
	return func(e *Engine) { e.queries = q }
}

// WithLinkExtractor replaces the search-result rule table.
func WithLinkExtractor(l *LinkExtractor) Option {
	return func(e *Engine) { e.links = l }
}

// ConfigOptions turns the table overrides in cfg into Engine options.
// Search paths are layered over DefaultSearchPaths; link selectors
// replace DefaultLinkRules.
func ConfigOptions(cfg *config.DiscoveryConfig) []Option {
	var opts []Option
	if len(cfg.SearchPaths) > 0 {
		paths := make(map[types.PlatformKind]string, len(DefaultSearchPaths)+len(cfg.SearchPaths))
		for k, v := range DefaultSearchPaths {
			paths[k] = v
		}
		for k, v := range cfg.SearchPaths {
			paths[types.PlatformKind(strings.ToLower(k))] = v
		}
		opts = append(opts, WithQueryBuilder(NewQueryBuilder(paths)))
	}
	if len(cfg.LinkSelectors) > 0 {
		rules := make([]LinkRule, 0, len(cfg.LinkSelectors))
		for i, sel := range cfg.LinkSelectors {
			rules = append(rules, LinkRule{Name: fmt.Sprintf("configured-%d", i+1), Selector: sel})
		}
		opts = append(opts, WithLinkExtractor(NewLinkExtractor(rules...)))
	}
	return opts
}

// NewEngine creates a discovery engine using f for every network step.
func NewEngine(f fetcher.Fetcher, cfg *config.DiscoveryConfig, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		fetcher:    f,
		classifier: NewClassifier(),
		queries:    NewQueryBuilder(nil),
		links:      NewLinkExtractor(),
		fallback:   NewExternalSearch(f, cfg.SearchEndpoint, logger),
		logger:     logger.With("component", "discovery"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Locate returns the product page URL, or false when none was found.
func (e *Engine) Locate(ctx context.Context, baseURL, name, sku string) (string, bool) {
	res := e.Resolve(ctx, baseURL, name, sku)
	return res.URL, res.Found
}

// Resolve runs the locate sequence:
// classify → search by SKU → search by name → external fallback.
// It never fails; every problem degrades to the next stage or NotFound.
func (e *Engine) Resolve(ctx context.Context, baseURL, name, sku string) Resolution {
	baseURL = strings.TrimSpace(baseURL)
	name = strings.TrimSpace(name)
	sku = strings.TrimSpace(sku)

	res := Resolution{By: StageNotFound, Platform: types.PlatformCustom}
	if baseURL == "" {
		return res
	}

	logger := e.logger.With("site", baseURL)
	stage := StageClassify
	for {
		if stage != StageResolved && stage != StageNotFound && ctx.Err() != nil {
			logger.Debug("locate cancelled", "stage", stage, "error", ctx.Err())
			stage = StageNotFound
		}

		switch stage {
		case StageClassify:
			stage = e.classify(ctx, baseURL, &res)
		case StageSearchSKU:
			stage = e.searchTerm(ctx, baseURL, sku, StageSearchSKU, StageSearchName, &res)
		case StageSearchName:
			stage = e.searchTerm(ctx, baseURL, name, StageSearchName, StageFallback, &res)
		case StageFallback:
			stage = e.externalFallback(ctx, baseURL, name, &res)
		case StageResolved:
			res.Found = true
			logger.Info("product located", "url", res.URL, "by", res.By, "platform", res.Platform, "rule", res.Rule)
			return res
		default:
			res.By = StageNotFound
			logger.Info("product not found", "platform", res.Platform, "steps", len(res.Steps))
			return res
		}
	}
}

func (e *Engine) classify(ctx context.Context, baseURL string, res *Resolution) Stage {
	home := e.fetcher.Fetch(ctx, baseURL)
	res.Steps = append(res.Steps, Step{Stage: StageClassify, URL: baseURL, OK: home.OK()})
	if !home.OK() {
		e.logger.Debug("homepage unavailable", "site", baseURL, "error", home.Err)
		return StageNotFound
	}
	res.Platform = e.classifier.Classify(home.Text())
	return StageSearchSKU
}

func (e *Engine) searchTerm(ctx context.Context, baseURL, term string, current, next Stage, res *Resolution) Stage {
	if term == "" {
		return next
	}

	searchURL := e.queries.BuildSearchURL(res.Platform, baseURL, term)
	page := e.fetcher.Fetch(ctx, searchURL)
	step := Step{Stage: current, URL: searchURL, OK: page.OK()}
	if !page.OK() {
		res.Steps = append(res.Steps, step)
		e.logger.Debug("search page unavailable", "url", searchURL, "error", page.Err)
		return next
	}

	doc, err := page.Document()
	if err != nil {
		res.Steps = append(res.Steps, step)
		e.logger.Debug("search page unparseable", "error", &types.ParseError{URL: searchURL, Err: err})
		return next
	}

	link, rule, ok := e.links.Extract(doc, baseURL)
	step.Found, step.Rule = ok, rule
	res.Steps = append(res.Steps, step)
	if !ok {
		return next
	}

	res.URL, res.By, res.Rule = link, current, rule
	return StageResolved
}

func (e *Engine) externalFallback(ctx context.Context, baseURL, name string, res *Resolution) Stage {
	fb := e.fallback.Search(ctx, name, baseURL)
	res.Steps = append(res.Steps, Step{Stage: StageFallback, URL: fb.SearchURL, OK: fb.Fetched, Found: fb.Found})
	if !fb.Found {
		return StageNotFound
	}
	res.URL, res.By, res.Rule = fb.Link, StageFallback, "external"
	return StageResolved
}
