package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/gemini"
)

type fakeGenerator struct {
	resp   *gemini.Response
	err    error
	prompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (*gemini.Response, error) {
	f.prompt = prompt
	return f.resp, f.err
}

type fakeAdapter struct {
	name  string
	items []article.Raw
	err   error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(context.Context, string) ([]article.Raw, error) {
	return f.items, f.err
}

type denyLimiter struct{}

func (denyLimiter) Use() error { return errors.New("budget spent") }

func TestGenerativeParsesFencedJSON(t *testing.T) {
	gen := &fakeGenerator{resp: &gemini.Response{Text: "```json\n" + `[
		{"title": "한국연구재단, 2024 기초연구 사업 공고", "date": "2024.05.01", "source": "연합뉴스", "url": "https://yna.co.kr/1", "snippet": "요약"},
		{"title": "대학 연구 지원 확대", "date": "2024.04.30", "source": "", "url": "https://example.com/2", "snippet": ""}
	]` + "\n```"}}

	items, err := NewGenerative(gen, GenerativeOptions{}).Fetch(context.Background(), "한국연구재단")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "한국연구재단, 2024 기초연구 사업 공고", items[0].Title)
	assert.Equal(t, "https://yna.co.kr/1", items[0].Link)
	assert.Equal(t, "연합뉴스", items[0].Source)
	assert.Equal(t, "AI Summary", items[1].FallbackSource)

	assert.Contains(t, gen.prompt, `"한국연구재단"`)
	assert.Contains(t, gen.prompt, "no markdown code blocks")
	assert.NotContains(t, gen.prompt, "Choose only from")
}

func TestGenerativeCapsItems(t *testing.T) {
	var b strings.Builder
	b.WriteString("[")
	for i := 0; i < 9; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"title":"t` + string(rune('a'+i)) + `","url":"u"}`)
	}
	b.WriteString("]")

	items, err := NewGenerative(&fakeGenerator{resp: &gemini.Response{Text: b.String()}}, GenerativeOptions{}).
		Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, items, GenerativeMaxItems)
}

func TestGenerativeMalformedFallsBackToCitations(t *testing.T) {
	gen := &fakeGenerator{resp: &gemini.Response{
		Text:      `[{"title": "잘린 응답", "date": `,
		Citations: []string{"https://a.example.com/1", "https://b.example.com/2"},
	}}

	items, err := NewGenerative(gen, GenerativeOptions{}).Fetch(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "https://a.example.com/1", items[0].Link)
	assert.Equal(t, "Web", items[0].FallbackSource)

	a := article.Normalize(items[0])
	assert.Equal(t, article.PlaceholderLinkTitle, a.Title)
	assert.Equal(t, "Web", a.Source)
	assert.Empty(t, a.Date)
}

func TestGenerativeMalformedWithoutCitationsIsEmpty(t *testing.T) {
	gen := &fakeGenerator{resp: &gemini.Response{Text: "죄송합니다. 결과를 찾을 수 없습니다."}}

	items, err := NewGenerative(gen, GenerativeOptions{}).Fetch(context.Background(), "q")
	assert.NoError(t, err)
	assert.Empty(t, items)
}

func TestGenerativeArrayInsideProse(t *testing.T) {
	gen := &fakeGenerator{resp: &gemini.Response{Text: `다음은 결과입니다: [{"title":"제목","url":"https://x"}] 감사합니다.`}}

	items, err := NewGenerative(gen, GenerativeOptions{}).Fetch(context.Background(), "q")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "제목", items[0].Title)
}

func TestGenerativeBackendError(t *testing.T) {
	gen := &fakeGenerator{err: gemini.ErrEmptyResponse}

	_, err := NewGenerative(gen, GenerativeOptions{}).Fetch(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestGenerativeLimiter(t *testing.T) {
	gen := &fakeGenerator{resp: &gemini.Response{Text: "[]"}}

	_, err := NewGenerative(gen, GenerativeOptions{Limiter: denyLimiter{}}).Fetch(context.Background(), "q")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnavailable))
	assert.Empty(t, gen.prompt, "backend must not be called once the budget is spent")
}

func TestGenerativeGrounding(t *testing.T) {
	feed := &fakeAdapter{name: "feed", items: []article.Raw{
		{Title: "정책 발표", Source: "조선일보", Date: "Wed, 01 May 2024 01:00:00 GMT", Link: "https://n/1"},
		{Title: "<b>두번째</b> 기사", Link: "https://n/2"},
	}}
	gen := &fakeGenerator{resp: &gemini.Response{Text: "[]"}}

	_, err := NewGenerative(gen, GenerativeOptions{Grounding: feed}).Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Contains(t, gen.prompt, "Choose only from these recent headlines")
	assert.Contains(t, gen.prompt, "- 정책 발표 (조선일보) 2024.05.01 https://n/1")
	assert.Contains(t, gen.prompt, "- 두번째 기사 https://n/2")
}

func TestGenerativeGroundingFailureIsIgnored(t *testing.T) {
	feed := &fakeAdapter{name: "feed", err: ErrUnavailable}
	gen := &fakeGenerator{resp: &gemini.Response{Text: `[{"title":"a","url":"b"}]`}}

	items, err := NewGenerative(gen, GenerativeOptions{Grounding: feed}).Fetch(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.NotContains(t, gen.prompt, "Choose only from")
}

func TestGroundingTextBudget(t *testing.T) {
	items := []article.Raw{{Title: "가나다라"}, {Title: "마바사아"}, {Title: "자차카타"}}

	text := groundingText(items, 16)
	assert.Equal(t, "- 가나다라\n- 마바사아\n", text)
	assert.Empty(t, groundingText(items, 3))
}
