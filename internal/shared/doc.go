// Package shared holds helpers used by more than one package that belong to
// no single domain. Its testutil subpackage captures slog output so tests
// can assert on what a component logged.
package shared
