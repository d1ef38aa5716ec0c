package annotate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"

	"github.com/lumenmedi/lumen/internal/metrics"
	"github.com/lumenmedi/lumen/internal/ratelimit"
)

// Generator produces raw free text for a prompt.
type Generator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Cache stores annotations keyed by article title. Both operations are
// best-effort: a Lookup miss and a failed Store are indistinguishable from
// a cold cache.
type Cache interface {
	Lookup(title string) (Annotation, bool)
	Store(title string, a Annotation)
}

type Options struct {
	Categories      []string
	MaxRetries      int           // attempts against the primary generator
	RequestTimeout  time.Duration // per attempt
	RetryDelay      time.Duration // fixed delay after transient failures
	BackoffUnit     time.Duration // unit of the 2^attempt rate-limit backoff
	RequestInterval time.Duration // minimum spacing between live API calls
}

// Client orchestrates one annotation per title: cache check, prompt build,
// bounded retries against the generator, parse, cache write-through.
type Client struct {
	gen      Generator
	fallback Generator
	cache    Cache
	budget   *ratelimit.Budget
	limiter  *rate.Limiter
	opts     Options

	sleep func(ctx context.Context, d time.Duration)
}

func NewClient(gen Generator, opts Options) *Client {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 2
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 2 * time.Second
	}
	if opts.BackoffUnit <= 0 {
		opts.BackoffUnit = time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.RequestInterval), 1)
	}

	return &Client{
		gen:     gen,
		limiter: limiter,
		opts:    opts,
		sleep:   sleepCtx,
	}
}

// WithCache attaches a write-through annotation cache.
func (c *Client) WithCache(cache Cache) *Client {
	c.cache = cache
	return c
}

// WithFallback attaches a secondary generator tried once when the primary
// retry budget is exhausted.
func (c *Client) WithFallback(gen Generator) *Client {
	c.fallback = gen
	return c
}

// WithBudget attaches a per-run request budget.
func (c *Client) WithBudget(b *ratelimit.Budget) *Client {
	c.budget = b
	return c
}

// Annotate returns a usable Annotation for the title. It never fails: when
// the cache misses and every API attempt is unusable, it degrades to the
// title-only fallback, which is deliberately not cached so a later run can
// still obtain a genuine annotation.
func (c *Client) Annotate(ctx context.Context, title string) Annotation {
	if c.cache != nil {
		if a, ok := c.cache.Lookup(title); ok {
			slog.Debug("annotation cache hit", "title", titlePrefix(title))
			if c.budget != nil {
				c.budget.RecordCacheHit()
			}
			metrics.Global.IncrementCacheHits()
			return a
		}
		slog.Debug("annotation cache miss", "title", titlePrefix(title))
		if c.budget != nil {
			c.budget.RecordCacheMiss()
		}
	}

	prompt := BuildPrompt(title, c.opts.Categories)

	if a, ok := c.tryGenerator(ctx, c.gen, prompt, title, c.opts.MaxRetries); ok {
		return a
	}
	if c.fallback != nil {
		slog.Info("trying fallback generator", "generator", c.fallback.Name(), "title", titlePrefix(title))
		if a, ok := c.tryGenerator(ctx, c.fallback, prompt, title, 1); ok {
			return a
		}
	}

	slog.Warn("annotation degraded to title-only fallback", "title", titlePrefix(title))
	metrics.Global.IncrementFallbackAnnotations()
	return FallbackAnnotation(title, c.opts.Categories)
}

func (c *Client) tryGenerator(ctx context.Context, gen Generator, prompt, title string, attempts int) (Annotation, bool) {
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return Annotation{}, false
		}
		if !c.consumeBudget(gen.Name()) {
			return Annotation{}, false
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return Annotation{}, false
		}

		slog.Debug("annotation attempt", "generator", gen.Name(), "attempt", attempt, "title", titlePrefix(title))

		attemptCtx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
		raw, err := gen.Generate(attemptCtx, prompt)
		cancel()

		if err != nil {
			switch {
			case isRateLimited(err):
				wait := c.opts.BackoffUnit * time.Duration(1<<attempt)
				slog.Warn("rate limited", "generator", gen.Name(), "attempt", attempt, "wait", wait)
				if attempt < attempts {
					c.sleep(ctx, wait)
				}
			case isTransient(err):
				slog.Warn("transient failure", "generator", gen.Name(), "attempt", attempt, "error", err)
				if attempt < attempts {
					c.sleep(ctx, c.opts.RetryDelay)
				}
			default:
				slog.Warn("generation failed", "generator", gen.Name(), "attempt", attempt, "error", err)
				if attempt < attempts {
					c.sleep(ctx, c.opts.RetryDelay)
				}
			}
			continue
		}

		if strings.TrimSpace(raw) == "" {
			slog.Warn("empty response body", "generator", gen.Name(), "attempt", attempt)
			if attempt < attempts {
				c.sleep(ctx, c.opts.RetryDelay)
			}
			continue
		}

		a, ok := Parse(raw, title, c.opts.Categories)
		if !ok {
			slog.Warn("unusable response", "generator", gen.Name(), "attempt", attempt, "title", titlePrefix(title))
			if attempt < attempts {
				c.sleep(ctx, c.opts.RetryDelay)
			}
			continue
		}

		if c.cache != nil {
			c.cache.Store(title, a)
		}
		metrics.Global.IncrementLiveAnnotations()
		slog.Info("annotation complete", "generator", gen.Name(), "attempt", attempt, "category", a.Category, "title", titlePrefix(title))
		return a, true
	}

	return Annotation{}, false
}

func (c *Client) consumeBudget(generator string) bool {
	if c.budget == nil {
		return true
	}

	var err error
	if generator == "openai" {
		err = c.budget.UseOpenAI()
	} else {
		err = c.budget.UseGemini()
	}
	if err != nil {
		slog.Warn("request budget exhausted", "generator", generator, "error", err)
		return false
	}
	return true
}

const promptTemplate = `당신은 10년 차 베테랑 소화기내과 간호사입니다.
아래 영어 뉴스 제목을 보고 다음 작업을 수행하세요:

1. 제목을 한국어로 번역 (간결하게, 15자 이내)
2. 짧은 요약 (1-2문장, 핵심만)
3. 긴 요약 (3-4문장, 상세하게)
4. 카테고리 분류

[카테고리 옵션]
%s

영어 뉴스 제목: %s

응답 형식 (반드시 이 형식으로):
제목: [한국어 번역 제목]
카테고리: [위 옵션 중 하나]
짧은요약: [1-2문장]
긴요약: [3-4문장]`

// BuildPrompt embeds the title and the configured category list into the
// fixed annotation prompt.
func BuildPrompt(title string, categories []string) string {
	var list strings.Builder
	for _, c := range categories {
		list.WriteString("- ")
		list.WriteString(c)
		list.WriteString("\n")
	}
	return fmt.Sprintf(promptTemplate, strings.TrimRight(list.String(), "\n"), title)
}

func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	var oerr *openai.APIError
	if errors.As(err, &oerr) {
		return oerr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func titlePrefix(title string) string {
	return truncateRunes(title, 30)
}
