// Package render writes the annotated articles as a single static HTML page.
package render

import (
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lumenmedi/lumen/internal/batch"
)

var kst = time.FixedZone("KST", 9*60*60)

// tagClasses maps the configured categories to card tag styles. Unknown
// categories fall into the default bucket instead of breaking the page.
var tagClasses = map[string]string{
	"기술/혁신":    "tag-tech",
	"규제/가이드라인": "tag-regulation",
	"연구/임상":    "tag-research",
	"안전/품질":    "tag-safety",
	"교육/훈련":    "tag-education",
}

type cardView struct {
	Index           int
	TranslatedTitle string
	ShortSummary    string
	LongSummary     string
	Category        string
	TagClass        string
	URL             string
	SourceName      string
	PublishedAt     string
}

type pageView struct {
	GeneratedAt   string
	ArticleCount  int
	CategoryStats string
	Cards         []cardView
}

// Render writes the page for the given articles to path, atomically.
func Render(path string, articles []batch.AnnotatedArticle) error {
	view := buildView(articles)

	var b strings.Builder
	if err := pageTemplate.Execute(&b, view); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename page: %w", err)
	}

	slog.Info("page rendered", "path", path, "articles", len(articles))
	return nil
}

func buildView(articles []batch.AnnotatedArticle) pageView {
	counts := map[string]int{}
	var order []string

	cards := make([]cardView, 0, len(articles))
	for i, a := range articles {
		if counts[a.Category] == 0 {
			order = append(order, a.Category)
		}
		counts[a.Category]++

		cards = append(cards, cardView{
			Index:           i,
			TranslatedTitle: a.TranslatedTitle,
			ShortSummary:    a.ShortSummary,
			LongSummary:     a.LongSummary,
			Category:        a.Category,
			TagClass:        tagClass(a.Category),
			URL:             a.URL,
			SourceName:      a.SourceName,
			PublishedAt:     a.PublishedAt.In(kst).Format("2006년 01월 02일"),
		})
	}

	stats := make([]string, 0, len(order))
	for _, cat := range order {
		stats = append(stats, fmt.Sprintf("%s %d건", cat, counts[cat]))
	}

	return pageView{
		GeneratedAt:   time.Now().In(kst).Format("2006년 01월 02일 15:04"),
		ArticleCount:  len(articles),
		CategoryStats: strings.Join(stats, " · "),
		Cards:         cards,
	}
}

func tagClass(category string) string {
	if class, ok := tagClasses[category]; ok {
		return class
	}
	return "tag-default"
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="ko">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>의료기기 뉴스 브리핑</title>
<style>
  body { font-family: 'Apple SD Gothic Neo', 'Malgun Gothic', sans-serif; margin: 0; background: #f5f6fa; color: #2c3e50; }
  .header { background: #1a5276; color: #fff; padding: 24px 16px; text-align: center; }
  .header h1 { margin: 0 0 6px; font-size: 1.5em; }
  .header .meta { font-size: 0.85em; opacity: 0.85; }
  .stats { text-align: center; padding: 12px; font-size: 0.9em; color: #566573; }
  .disclaimer { max-width: 860px; margin: 0 auto 12px; padding: 10px 16px; font-size: 0.8em; color: #7f8c8d; background: #fcf3cf; border-radius: 6px; }
  .grid { max-width: 860px; margin: 0 auto; padding: 0 12px 40px; display: grid; gap: 14px; }
  .card { background: #fff; border-radius: 8px; padding: 16px; box-shadow: 0 1px 3px rgba(0,0,0,0.08); cursor: pointer; }
  .card h2 { margin: 0 0 8px; font-size: 1.05em; }
  .card p { margin: 0 0 10px; font-size: 0.9em; line-height: 1.5; color: #566573; }
  .card .foot { font-size: 0.78em; color: #95a5a6; }
  .tag { display: inline-block; padding: 2px 10px; border-radius: 10px; font-size: 0.75em; color: #fff; margin-bottom: 8px; }
  .tag-tech { background: #2980b9; }
  .tag-regulation { background: #8e44ad; }
  .tag-research { background: #27ae60; }
  .tag-safety { background: #c0392b; }
  .tag-education { background: #d68910; }
  .tag-default { background: #7f8c8d; }
  .modal { display: none; position: fixed; inset: 0; background: rgba(0,0,0,0.5); z-index: 10; }
  .modal .box { background: #fff; max-width: 560px; margin: 10vh auto; padding: 24px; border-radius: 8px; }
  .modal h2 { margin-top: 0; font-size: 1.1em; }
  .modal p { line-height: 1.6; font-size: 0.92em; }
  .modal a { color: #1a5276; }
  .modal .close { float: right; cursor: pointer; font-size: 1.2em; color: #95a5a6; }
</style>
</head>
<body>
<div class="header">
  <h1>의료기기 뉴스 브리핑</h1>
  <div class="meta">{{.GeneratedAt}} 기준 · 총 {{.ArticleCount}}건</div>
</div>
<div class="stats">{{.CategoryStats}}</div>
<div class="disclaimer">본 페이지의 요약은 AI가 자동 생성한 것으로, 원문과 차이가 있을 수 있습니다. 정확한 내용은 원문 기사를 확인하세요.</div>
<div class="grid">
{{range .Cards}}  <div class="card" onclick="openModal({{.Index}})">
    <span class="tag {{.TagClass}}">{{.Category}}</span>
    <h2>{{.TranslatedTitle}}</h2>
    <p>{{.ShortSummary}}</p>
    <div class="foot">{{.SourceName}} · {{.PublishedAt}}</div>
  </div>
{{end}}</div>
{{range .Cards}}<div class="modal" id="modal-{{.Index}}" onclick="if(event.target===this)closeModal({{.Index}})">
  <div class="box">
    <span class="close" onclick="closeModal({{.Index}})">&times;</span>
    <span class="tag {{.TagClass}}">{{.Category}}</span>
    <h2>{{.TranslatedTitle}}</h2>
    <p>{{.LongSummary}}</p>
    <p><a href="{{.URL}}" target="_blank" rel="noopener">원문 보기 →</a></p>
  </div>
</div>
{{end}}<script>
function openModal(i){document.getElementById('modal-'+i).style.display='block';}
function closeModal(i){document.getElementById('modal-'+i).style.display='none';}
</script>
</body>
</html>
`))
