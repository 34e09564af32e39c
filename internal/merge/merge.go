// Package merge combines independently-scanned per-repository reports into
// one cross-repository threat model.
package merge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/galsec/galscan/internal/models"
	"github.com/galsec/galscan/internal/validate"
)

// Options configure one merge call.
type Options struct {
	// Workspace names the merged model.
	Workspace string

	// Expected lists repository names the workspace manifest promises;
	// expected-but-absent repositories surface as unloaded statuses.
	Expected []string

	// StaleAfter flags reports older than this; zero means the default
	// of 168 hours.
	StaleAfter time.Duration

	// Now overrides the clock, for tests.
	Now time.Time
}

// Merge combines the given reports. Reports are processed in caller input
// order; that order is a documented part of the contract, because the
// duplicate-tag tie-break keeps the first-seen definition when no
// repository name matches the tag prefix.
func Merge(results []LoadResult, opts Options) *models.MergedReport {
	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	staleAfter := opts.StaleAfter
	if staleAfter == 0 {
		staleAfter = models.DefaultStaleAfter
	}

	out := &models.MergedReport{
		Workspace:     opts.Workspace,
		MergedAt:      now,
		SchemaVersion: models.SchemaVersion,
	}

	// Load statuses, isolation per repository: failures are recorded,
	// never propagated.
	var loadedNames []string
	present := make(map[string]struct{}, len(results))
	for _, res := range results {
		present[res.Name] = struct{}{}
		if res.Err != nil {
			out.RepoStatuses = append(out.RepoStatuses, models.RepoStatus{
				Name:  res.Name,
				Error: res.Err.Error(),
			})
			continue
		}
		out.RepoStatuses = append(out.RepoStatuses, models.RepoStatus{
			Name:        res.Name,
			Loaded:      true,
			Commit:      res.Report.Commit,
			GeneratedAt: res.Report.GeneratedAt,
			Annotations: res.Report.Model.AnnotationCount(),
		})
		loadedNames = append(loadedNames, res.Name)

		if staleAfter > 0 && now.Sub(res.Report.GeneratedAt) > staleAfter {
			out.Warnings = append(out.Warnings, models.MergeWarning{
				Kind:  models.WarnStaleReport,
				Repos: []string{res.Name},
				Message: fmt.Sprintf("report for %s is %s old",
					res.Name, now.Sub(res.Report.GeneratedAt).Round(time.Hour)),
			})
		}
	}
	for _, name := range opts.Expected {
		if _, ok := present[name]; ok {
			continue
		}
		out.RepoStatuses = append(out.RepoStatuses, models.RepoStatus{
			Name:  name,
			Error: "expected by workspace manifest but no report found",
		})
	}

	// Schema drift across loaded reports.
	if versions := schemaVersions(results); len(versions) > 1 {
		out.Warnings = append(out.Warnings, models.MergeWarning{
			Kind:    models.WarnSchemaMismatch,
			Message: fmt.Sprintf("reports declare differing schema versions: %s", strings.Join(versions, ", ")),
		})
	}

	// Tag registry and ownership.
	entries, byTag, dupWarnings := buildRegistry(results)
	out.TagRegistry = entries
	out.Warnings = append(out.Warnings, dupWarnings...)

	// Cross-repository reference resolution.
	out.UnresolvedRefs, out.Warnings = resolveRefs(results, byTag, loadedNames, out.Warnings)

	// Combine collections into one model.
	out.Model = combine(results, byTag, opts.Workspace, now)

	out.Totals = models.MergeTotals{
		Repos:                len(out.RepoStatuses),
		ReposLoaded:          len(loadedNames),
		Assets:               len(out.Model.Assets),
		Threats:              len(out.Model.Threats),
		Controls:             len(out.Model.Controls),
		Mitigations:          len(out.Model.Mitigations),
		Exposures:            len(out.Model.Exposures),
		Acceptances:          len(out.Model.Acceptances),
		Flows:                len(out.Model.Flows),
		Annotations:          out.Model.AnnotationCount(),
		UnmitigatedExposures: out.Model.UnmitigatedCount(),
	}

	return out
}

func schemaVersions(results []LoadResult) []string {
	seen := make(map[string]struct{})
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		v := res.Report.SchemaVersion
		if v == "" {
			v = "unversioned"
		}
		seen[v] = struct{}{}
	}
	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions
}

// resolveRefs checks every #-token used in a relationship against the tag
// registry and groups the misses by tag, preserving first-seen order.
func resolveRefs(results []LoadResult, byTag map[string]models.TagEntry, loadedNames []string, warnings []models.MergeWarning) ([]models.UnresolvedRef, []models.MergeWarning) {
	var order []string
	grouped := make(map[string]*models.UnresolvedRef)

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		for _, ref := range validate.CollectRefs(res.Report.Model) {
			tag := strings.ToLower(strings.TrimPrefix(ref.Name, "#"))
			if _, ok := byTag[tag]; ok {
				continue
			}
			u, ok := grouped[tag]
			if !ok {
				u = &models.UnresolvedRef{Tag: tag}
				grouped[tag] = u
				order = append(order, tag)
			}
			loc := ref.Location
			loc.File = res.Name + "/" + loc.File
			u.Locations = append(u.Locations, loc)
		}
	}

	unresolved := make([]models.UnresolvedRef, 0, len(order))
	for _, tag := range order {
		u := grouped[tag]
		repo, kind := MatchRepo(TagPrefix(tag), loadedNames)
		if kind != MatchNone {
			u.InferredRepo = repo
		} else {
			warnings = append(warnings, models.MergeWarning{
				Kind:    models.WarnTagPrefixMismatch,
				Tag:     tag,
				Message: fmt.Sprintf("tag #%s has prefix %q matching no known repository", tag, TagPrefix(tag)),
			})
		}
		warnings = append(warnings, models.MergeWarning{
			Kind:    models.WarnUnresolvedRef,
			Tag:     tag,
			Message: unresolvedMessage(u),
		})
		unresolved = append(unresolved, *u)
	}

	return unresolved, warnings
}

func unresolvedMessage(u *models.UnresolvedRef) string {
	msg := fmt.Sprintf("reference #%s resolves to no definition in the merged set (%d use(s))", u.Tag, len(u.Locations))
	if u.InferredRepo != "" {
		msg += fmt.Sprintf("; likely belongs to %s", u.InferredRepo)
	}
	return msg
}

// combine concatenates all loaded models. Every location's file is
// prefixed with "<repo>/". Definitions carrying an id keep only the
// registry owner's copy; relationships are never deduplicated, because
// the same relationship stated in two repositories is meaningful.
func combine(results []LoadResult, byTag map[string]models.TagEntry, workspace string, now time.Time) *models.ThreatModel {
	m := &models.ThreatModel{
		Project:       workspace,
		GeneratedAt:   now,
		SchemaVersion: models.SchemaVersion,
	}

	for _, res := range results {
		if res.Err != nil {
			continue
		}
		repo := res.Name
		src := res.Report.Model
		owns := func(id string) bool {
			if id == "" {
				return true
			}
			return byTag[strings.ToLower(strings.TrimPrefix(id, "#"))].Repo == repo
		}
		prefix := func(loc models.SourceLocation) models.SourceLocation {
			loc.File = repo + "/" + loc.File
			return loc
		}
		prefixRel := func(rel models.Rel) models.Rel {
			rel.Location = prefix(rel.Location)
			return rel
		}

		for _, v := range src.Assets {
			if !owns(v.ID) {
				continue
			}
			v.Location = prefix(v.Location)
			m.Assets = append(m.Assets, v)
		}
		for _, v := range src.Threats {
			if !owns(v.ID) {
				continue
			}
			v.Location = prefix(v.Location)
			m.Threats = append(m.Threats, v)
		}
		for _, v := range src.Controls {
			if !owns(v.ID) {
				continue
			}
			v.Location = prefix(v.Location)
			m.Controls = append(m.Controls, v)
		}
		for _, v := range src.Mitigations {
			v.Rel = prefixRel(v.Rel)
			m.Mitigations = append(m.Mitigations, v)
		}
		for _, v := range src.Exposures {
			v.Rel = prefixRel(v.Rel)
			m.Exposures = append(m.Exposures, v)
		}
		for _, v := range src.Acceptances {
			v.Rel = prefixRel(v.Rel)
			m.Acceptances = append(m.Acceptances, v)
		}
		for _, v := range src.Transfers {
			v.Rel = prefixRel(v.Rel)
			m.Transfers = append(m.Transfers, v)
		}
		for _, v := range src.Flows {
			v.Rel = prefixRel(v.Rel)
			m.Flows = append(m.Flows, v)
		}
		for _, v := range src.Boundaries {
			v.Rel = prefixRel(v.Rel)
			m.Boundaries = append(m.Boundaries, v)
		}
		for _, v := range src.Validations {
			v.Rel = prefixRel(v.Rel)
			m.Validations = append(m.Validations, v)
		}
		for _, v := range src.Audits {
			v.Rel = prefixRel(v.Rel)
			m.Audits = append(m.Audits, v)
		}
		for _, v := range src.Ownerships {
			v.Rel = prefixRel(v.Rel)
			m.Ownerships = append(m.Ownerships, v)
		}
		for _, v := range src.DataHandling {
			v.Rel = prefixRel(v.Rel)
			m.DataHandling = append(m.DataHandling, v)
		}
		for _, v := range src.Assumptions {
			v.Rel = prefixRel(v.Rel)
			m.Assumptions = append(m.Assumptions, v)
		}
		for _, v := range src.Shields {
			v.Rel = prefixRel(v.Rel)
			m.Shields = append(m.Shields, v)
		}
		for _, v := range src.Comments {
			v.Rel = prefixRel(v.Rel)
			m.Comments = append(m.Comments, v)
		}

		m.Files.Scanned += src.Files.Scanned
		m.Files.Annotated += src.Files.Annotated
		m.Files.Unannotated += src.Files.Unannotated
		for _, f := range src.Files.ScannedFiles {
			m.Files.ScannedFiles = append(m.Files.ScannedFiles, repo+"/"+f)
		}
		for _, f := range src.Files.UnannotatedFiles {
			m.Files.UnannotatedFiles = append(m.Files.UnannotatedFiles, repo+"/"+f)
		}

		m.Coverage.TotalSymbols += src.Coverage.TotalSymbols
		m.Coverage.AnnotatedSymbols += src.Coverage.AnnotatedSymbols
		for _, u := range src.Coverage.UnannotatedCritical {
			u.File = repo + "/" + u.File
			m.Coverage.UnannotatedCritical = append(m.Coverage.UnannotatedCritical, u)
		}
	}

	// Percentages recompute from the summed counts, never averaged.
	m.Coverage.CoveragePercent = models.CoveragePercent(m.Coverage.AnnotatedSymbols, m.Coverage.TotalSymbols)

	return m
}
