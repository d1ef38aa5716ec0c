package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lumenmedi/lumen/internal/annotate"
	"github.com/lumenmedi/lumen/internal/feed"
)

// echoAnnotator returns an annotation derived from the title and tracks the
// peak number of concurrent calls.
type echoAnnotator struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
}

func (e *echoAnnotator) Annotate(ctx context.Context, title string) annotate.Annotation {
	n := atomic.AddInt32(&e.inFlight, 1)
	e.mu.Lock()
	if n > e.peak {
		e.peak = n
	}
	e.mu.Unlock()

	time.Sleep(time.Millisecond)
	atomic.AddInt32(&e.inFlight, -1)

	return annotate.Annotation{TranslatedTitle: "번역: " + title}
}

func TestRun_PreservesInputOrder(t *testing.T) {
	articles := make([]feed.Article, 20)
	for i := range articles {
		articles[i] = feed.Article{OriginalTitle: fmt.Sprintf("title %02d", i)}
	}

	out := Run(context.Background(), &echoAnnotator{}, articles, 4)
	if len(out) != len(articles) {
		t.Fatalf("got %d results, want %d", len(out), len(articles))
	}
	for i, a := range out {
		want := fmt.Sprintf("번역: title %02d", i)
		if a.TranslatedTitle != want {
			t.Errorf("result %d = %q, want %q", i, a.TranslatedTitle, want)
		}
		if a.OriginalTitle != articles[i].OriginalTitle {
			t.Errorf("result %d article = %q, want %q", i, a.OriginalTitle, articles[i].OriginalTitle)
		}
	}
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	articles := make([]feed.Article, 30)
	for i := range articles {
		articles[i] = feed.Article{OriginalTitle: fmt.Sprintf("title %d", i)}
	}

	ann := &echoAnnotator{}
	Run(context.Background(), ann, articles, 3)

	if ann.peak > 3 {
		t.Errorf("peak concurrency %d exceeds limit 3", ann.peak)
	}
}

func TestRun_EmptyInput(t *testing.T) {
	if out := Run(context.Background(), &echoAnnotator{}, nil, 4); out != nil {
		t.Errorf("empty input must yield nil, got %v", out)
	}
}
