package search

import (
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/query"
	"github.com/hyperjump/shiori/internal/style"
)

// FormatProposals renders every "drop one term" relaxation of queries as a
// re-submittable option string and a label with the dropped term struck
// through. Nothing can be dropped from a single term, so fewer than two
// queries yield no proposals. A proposal naming a term that does not exist is
// skipped.
func FormatProposals(proposals []models.Proposal, queries []query.Query, renderer style.Renderer, logger *zap.Logger) []*models.ProposalOption {
	options := make([]*models.ProposalOption, 0, len(proposals))
	if len(queries) <= 1 {
		return options
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	hit := wrapper(renderer, "hit")
	del := wrapper(renderer, "del")
	sep := " "
	if renderer != nil {
		sep = renderer.Separator()
	}

	for _, p := range proposals {
		if p.Omit < 0 || p.Omit >= len(queries) {
			logger.Warn("Proposal omits a term outside the query",
				zap.Int("omit", p.Omit),
				zap.Int("terms", len(queries)),
			)
			continue
		}
		label := make([]string, 0, len(queries))
		option := make([]string, 0, len(queries)-1)
		for i, q := range queries {
			if i == p.Omit {
				label = append(label, del(q.String()))
				continue
			}
			label = append(label, hit(q.String()))
			option = append(option, q.String())
		}
		options = append(options, &models.ProposalOption{
			Options: strings.Join(option, " "),
			Label:   strings.Join(label, sep),
			Count:   p.Expect,
		})
	}
	return options
}

// wrapper returns a function rendering text inside tag.
func wrapper(renderer style.Renderer, tag string) func(string) string {
	if renderer == nil {
		return func(text string) string { return text }
	}
	template := renderer.Convert("<" + tag + ">" + style.Placeholder + "</" + tag + ">")
	return func(text string) string {
		return strings.Replace(template, style.Placeholder, text, 1)
	}
}
