package merge

import (
	"fmt"
	"strings"

	"github.com/galsec/galscan/internal/models"
)

// candidate is one repository's definition of a tag.
type candidate struct {
	repo string
	kind string
	loc  models.SourceLocation
}

// buildRegistry collects every id-bearing definition across the loaded
// reports, in caller input order, and resolves one owner per tag.
// Boundary ids are registered too, so cross-repo references to them
// resolve; ownership only affects which asset/threat/control definition
// survives the combine step, never boundary rows themselves.
// Ownership: sole definer, else exact prefix match, else fuzzy prefix
// match, else the first-seen definition (a documented, order-dependent
// tie-break) with a duplicate_tag warning naming every definer.
func buildRegistry(loaded []LoadResult) ([]models.TagEntry, map[string]models.TagEntry, []models.MergeWarning) {
	var order []string
	candidates := make(map[string][]candidate)

	// Tags fold to lower case so that cross-repo references match the way
	// single-repo dangling-ref checks do.
	collect := func(repo, kind, id string, loc models.SourceLocation) {
		if id == "" {
			return
		}
		tag := strings.ToLower(strings.TrimPrefix(id, "#"))
		if _, seen := candidates[tag]; !seen {
			order = append(order, tag)
		}
		candidates[tag] = append(candidates[tag], candidate{repo: repo, kind: kind, loc: loc})
	}

	for _, res := range loaded {
		if res.Err != nil {
			continue
		}
		m := res.Report.Model
		for _, a := range m.Assets {
			collect(res.Name, "asset", a.ID, a.Location)
		}
		for _, t := range m.Threats {
			collect(res.Name, "threat", t.ID, t.Location)
		}
		for _, c := range m.Controls {
			collect(res.Name, "control", c.ID, c.Location)
		}
		for _, b := range m.Boundaries {
			collect(res.Name, "boundary", b.ID, b.Location)
		}
	}

	var (
		entries  []models.TagEntry
		byTag    = make(map[string]models.TagEntry, len(order))
		warnings []models.MergeWarning
	)

	for _, tag := range order {
		cands := candidates[tag]
		winner := cands[0]

		repos := distinctRepos(cands)
		if len(repos) > 1 {
			reason := "first seen"
			if owner, kind := MatchRepo(TagPrefix(tag), repos); kind != MatchNone {
				reason = "name match"
				for _, c := range cands {
					if c.repo == owner {
						winner = c
						break
					}
				}
			}
			warnings = append(warnings, models.MergeWarning{
				Kind: models.WarnDuplicateTag,
				Tag:  tag,
				Message: fmt.Sprintf("tag #%s defined by %s; keeping %s (%s)",
					tag, strings.Join(repos, ", "), winner.repo, reason),
				Repos: repos,
			})
		}

		entry := models.TagEntry{
			Tag:  tag,
			Repo: winner.repo,
			Kind: winner.kind,
			File: winner.repo + "/" + winner.loc.File,
			Line: winner.loc.Line,
		}
		entries = append(entries, entry)
		byTag[tag] = entry
	}

	return entries, byTag, warnings
}

func distinctRepos(cands []candidate) []string {
	seen := make(map[string]struct{}, len(cands))
	var repos []string
	for _, c := range cands {
		if _, ok := seen[c.repo]; ok {
			continue
		}
		seen[c.repo] = struct{}{}
		repos = append(repos, c.repo)
	}
	return repos
}
