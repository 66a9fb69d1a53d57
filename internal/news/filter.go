package news

import (
	"strings"

	"github.com/deusflow/nrfinsight/internal/article"
	"github.com/deusflow/nrfinsight/internal/topic"
)

// applies reports whether a rule is triggered by the query text.
func applies(rule topic.Rule, query string) bool {
	return strings.Contains(query, rule.Trigger)
}

// keep reports whether an article survives one triggered rule.
func keep(rule topic.Rule, a article.Article) bool {
	text := a.Title + " " + a.Snippet

	switch rule.Mode {
	case topic.ModeRequire:
		return strings.Contains(text, rule.Trigger)
	case topic.ModeDisambiguate:
		if !strings.Contains(text, rule.Trigger) {
			return true
		}
		return containsAny(text, rule.Context)
	}
	return true
}

// filterByContext drops articles failing any rule triggered by query.
// Rules whose trigger is absent from query are skipped entirely.
func filterByContext(query string, rules []topic.Rule, articles []article.Article) ([]article.Article, int) {
	var active []topic.Rule
	for _, r := range rules {
		if applies(r, query) {
			active = append(active, r)
		}
	}
	if len(active) == 0 {
		return articles, 0
	}

	out := make([]article.Article, 0, len(articles))
	dropped := 0
	for _, a := range articles {
		ok := true
		for _, r := range active {
			if !keep(r, a) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, a)
		} else {
			dropped++
		}
	}
	return out, dropped
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}
