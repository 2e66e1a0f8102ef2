// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Cardsmith Contributors

package artifact

import (
	"regexp"
	"strings"
)

// NoCertifications is the sentinel for an empty certifications field.
const NoCertifications = "none"

// Profile is the person a business card is generated for.
type Profile struct {
	FullName       string `koanf:"full_name" json:"full_name,omitempty" jsonschema:"description=Full name shown on the card"`
	Handle         string `koanf:"handle" json:"handle,omitempty" jsonschema:"description=Social media handle; also used to suggest a package scope"`
	JobProfile     string `koanf:"job_profile" json:"job_profile,omitempty"`
	GitHub         string `koanf:"github" json:"github,omitempty" jsonschema:"description=GitHub URL or username"`
	LinkedIn       string `koanf:"linkedin" json:"linkedin,omitempty" jsonschema:"description=LinkedIn URL or username"`
	Portfolio      string `koanf:"portfolio" json:"portfolio,omitempty" jsonschema:"description=Portfolio URL or hostname"`
	Certifications string `koanf:"certifications" json:"certifications,omitempty"`
	Tagline        string `koanf:"tagline" json:"tagline,omitempty"`
	Email          string `koanf:"email" json:"email,omitempty"`
	PackageName    string `koanf:"package_name" json:"package_name,omitempty" jsonschema:"description=npm package name, optionally @scope/name"`
	Version        string `koanf:"version" json:"version,omitempty" jsonschema:"description=Semantic version of the generated package"`
}

var (
	urlScheme       = regexp.MustCompile(`^https?://`)
	linkedInUser    = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	linkedInURL     = regexp.MustCompile(`^https?://(www\.)?linkedin\.com/in/[a-zA-Z0-9_-]+/?$`)
	linkedInID      = regexp.MustCompile(`linkedin\.com/in/([^/]+)`)
	portfolioHost   = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9-.]+\.[a-zA-Z]{2,}$`)
	portfolioURL    = regexp.MustCompile(`^https?://[a-zA-Z0-9][a-zA-Z0-9-.]+\.[a-zA-Z]{2,}`)
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	trailingSlashes = regexp.MustCompile(`/+$`)
)

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidLinkedIn reports whether s is empty, a LinkedIn username, or a
// LinkedIn profile URL.
func ValidLinkedIn(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || linkedInUser.MatchString(s) || linkedInURL.MatchString(s)
}

// ValidPortfolio reports whether s is empty, a hostname, or a URL.
func ValidPortfolio(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || portfolioHost.MatchString(s) || portfolioURL.MatchString(s)
}

// Normalize expands usernames and hostnames into full URLs and fills in
// defaults. It is idempotent.
func (p Profile) Normalize() Profile {
	p.FullName = strings.TrimSpace(p.FullName)
	p.Handle = strings.TrimSpace(p.Handle)
	p.JobProfile = strings.TrimSpace(p.JobProfile)
	p.Tagline = strings.TrimSpace(p.Tagline)
	p.Email = strings.TrimSpace(p.Email)
	p.PackageName = strings.TrimSpace(p.PackageName)

	p.GitHub = expand(p.GitHub, "https://github.com/")
	p.LinkedIn = expand(p.LinkedIn, "https://linkedin.com/in/")
	p.Portfolio = expand(p.Portfolio, "https://")

	p.Certifications = strings.TrimSpace(p.Certifications)
	if p.Certifications == "" {
		p.Certifications = NoCertifications
	}
	if strings.TrimSpace(p.Version) == "" {
		p.Version = DefaultVersion
	}
	return p
}

// HasCertifications reports whether any certifications were listed.
func (p Profile) HasCertifications() bool {
	return p.Certifications != "" && p.Certifications != NoCertifications
}

// LinkedInMessageID returns the profile id used to open a LinkedIn message
// thread, or "" if there is no LinkedIn URL.
func (p Profile) LinkedInMessageID() string {
	m := linkedInID.FindStringSubmatch(p.LinkedIn)
	if m == nil {
		return ""
	}
	return m[1]
}

func expand(s, prefix string) string {
	s = strings.TrimSpace(s)
	if s == "" || urlScheme.MatchString(s) {
		return s
	}
	return prefix + s
}

// lastSegment returns the final path segment of a URL, e.g. the username.
func lastSegment(u string) string {
	u = trailingSlashes.ReplaceAllString(u, "")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
