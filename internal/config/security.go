package config

import (
	"regexp"
	"strings"
)

// SensitivePattern represents a pattern that might indicate a credential.
type SensitivePattern struct {
	Name    string
	Pattern *regexp.Regexp
}

var sensitivePatterns = []SensitivePattern{
	{Name: "GitHub token", Pattern: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9_]{22,}`)},
	{Name: "GitLab token", Pattern: regexp.MustCompile(`glpat-[A-Za-z0-9_-]{20,}`)},
	{Name: "token assignment", Pattern: regexp.MustCompile(`(?i)_token\s*=\s*"[^"]+"`)},
}

// SensitiveDataFinding represents a detected credential in config content.
type SensitiveDataFinding struct {
	PatternName string
	Line        int
	Preview     string // redacted
}

// DetectSensitiveData scans generated configuration content for
// credentials. Each line is reported at most once.
func DetectSensitiveData(content string) []SensitiveDataFinding {
	var findings []SensitiveDataFinding
	for i, line := range strings.Split(content, "\n") {
		for _, p := range sensitivePatterns {
			if p.Pattern.MatchString(line) {
				findings = append(findings, SensitiveDataFinding{
					PatternName: p.Name,
					Line:        i + 1,
					Preview:     redactSensitiveValue(line),
				})
				break
			}
		}
	}
	return findings
}

// redactSensitiveValue keeps the key part of an assignment and hides the value.
func redactSensitiveValue(line string) string {
	eqIdx := strings.Index(line, "=")
	if eqIdx == -1 {
		return "[REDACTED]"
	}
	return strings.TrimSpace(line[:eqIdx]) + " = [REDACTED]"
}
