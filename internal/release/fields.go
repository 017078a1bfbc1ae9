package release

import (
	"encoding/json"
	"fmt"
	"time"
)

// repoFields maps raw API field names from either host to RepoInfo fields.
var repoFields = map[string]string{
	"full_name":           "name",
	"path_with_namespace": "name",
	"description":         "description",
	"topics":              "topics",
	"language":            "language",
	"stargazers_count":    "stars",
	"star_count":          "stars",
	"forks_count":         "forks",
	"open_issues_count":   "issues",
	"html_url":            "url",
	"web_url":             "url",
	"updated_at":          "updated",
	"last_activity_at":    "updated",
	"created_at":          "created",
	"archived":            "archived",
	"visibility":          "visibility",
}

// repoInfoFromFields builds a RepoInfo from a raw API object.
func repoInfoFromFields(raw map[string]interface{}) *RepoInfo {
	info := &RepoInfo{}
	for rawKey, value := range raw {
		field, ok := repoFields[rawKey]
		if !ok || value == nil {
			continue
		}
		switch field {
		case "name":
			info.Name = asString(value)
		case "description":
			info.Description = asString(value)
		case "topics":
			info.Topics = asStrings(value)
		case "language":
			info.Language = asString(value)
		case "stars":
			info.Stars = asInt(value)
		case "forks":
			info.Forks = asInt(value)
		case "issues":
			info.Issues = asInt(value)
		case "url":
			info.URL = asString(value)
		case "updated":
			info.Updated = asTime(value)
		case "created":
			info.Created = asTime(value)
		case "archived":
			info.Archived, _ = value.(bool)
		case "visibility":
			info.Visibility = asString(value)
		}
	}
	return info
}

// rawFields converts any JSON-serializable value into its raw field map.
func rawFields(v interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal api object: %w", err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal api object: %w", err)
	}
	return raw, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	f, _ := v.(float64)
	return int(f)
}

func asStrings(v interface{}) []string {
	items, _ := v.([]interface{})
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asTime(v interface{}) *time.Time {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
