package main

import (
	"context"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/lord-charles/AMS-TURBO-REPO-sub003/core/attendance"
)

const (
	maxSuggestions    = 3
	suggestionsCutoff = 0.7
)

// resolveCourse maps a course ID or code to the course ID. Unknown input fails with
// attendance.ErrCourseNotFound, suggesting the closest codes.
func (cli *commandLine) resolveCourse(ctx context.Context, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", nil
	}
	courses, err := cli.svc.ListCourses(ctx)
	if err != nil {
		return "", err
	}

	codes := make([]string, 0, len(courses))
	for _, c := range courses {
		if strings.EqualFold(c.CourseID, input) || strings.EqualFold(c.CourseCode, input) {
			return c.CourseID, nil
		}
		codes = append(codes, c.CourseCode)
	}

	if s := closeMatches(strings.ToUpper(input), codes, maxSuggestions, suggestionsCutoff); len(s) > 0 {
		return "", errors.Wrapf(attendance.ErrCourseNotFound, "%q (did you mean %s?)", input, joinCodes(s))
	}
	return "", errors.Wrapf(attendance.ErrCourseNotFound, "%q", input)
}

// closeMatches returns at most n possibilities whose similarity to word is at least cutoff,
// best first.
func closeMatches(word string, possibilities []string, n int, cutoff float64) []string {
	type match struct {
		s     string
		ratio float64
	}
	chars := strings.Split(word, "")
	var matches []match
	for _, p := range possibilities {
		m := difflib.NewMatcher(chars, strings.Split(p, ""))
		if r := m.Ratio(); r >= cutoff {
			matches = append(matches, match{p, r})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].ratio > matches[j].ratio })

	res := make([]string, 0, n)
	for i := 0; i < len(matches) && i < n; i++ {
		res = append(res, matches[i].s)
	}
	return res
}
