package report

import (
	"strings"

	"github.com/drone/drone-xray-junit/runner"
	"github.com/drone/drone-xray-junit/sanitize"
)

// TitleResolver computes the display name of a suite.
type TitleResolver interface {
	SuiteTitle(suite *runner.Suite) string
}

// LeafTitle names a suite by its own title.
type LeafTitle struct {
	RootTitle string
}

// SuiteTitle implements TitleResolver.
func (l LeafTitle) SuiteTitle(suite *runner.Suite) string {
	return resolved(ownTitle(suite, l.RootTitle), l.RootTitle)
}

// FullPathTitle names a suite by the titles of all its ancestors and itself.
type FullPathTitle struct {
	RootTitle string
	Separator string
}

// SuiteTitle implements TitleResolver.
func (f FullPathTitle) SuiteTitle(suite *runner.Suite) string {
	var titles []string
	for s := suite; s != nil; s = s.Parent {
		titles = append([]string{ownTitle(s, f.RootTitle)}, titles...)
	}
	return resolved(strings.Join(titles, f.Separator), f.RootTitle)
}

// NewTitleResolver picks the resolver selected by opts.
func NewTitleResolver(opts Options) TitleResolver {
	if opts.UseFullSuiteTitle {
		return FullPathTitle{RootTitle: opts.RootSuiteTitle, Separator: opts.SuiteTitleSeparator}
	}
	return LeafTitle{RootTitle: opts.RootSuiteTitle}
}

func ownTitle(s *runner.Suite, rootTitle string) string {
	if s.Anonymous() {
		return rootTitle
	}
	return s.Title
}

func resolved(title, fallback string) string {
	title = sanitize.Text(title)
	if title == "" {
		return sanitize.Text(fallback)
	}
	return title
}

// jenkinsClassname joins the non-empty titles of the test's ancestors.
func jenkinsClassname(t *runner.Test, prefix, separator string) string {
	var titles []string
	for s := t.Parent; s != nil; s = s.Parent {
		if s.Title != "" {
			titles = append([]string{s.Title}, titles...)
		}
	}
	if prefix != "" {
		titles = append([]string{prefix}, titles...)
	}
	return strings.Join(titles, separator)
}
