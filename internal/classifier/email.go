package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/amishk599/leadmail/internal/model"
)

// DefaultRole is used when no role can be extracted from a description.
const DefaultRole = "Entry-Level"

var (
	rolePattern      = regexp.MustCompile(`(?i)(?:position|role|job|opening)[:\s]+([^.,\n]{10,50}?)(?:[.,\n]|\s+at\s|\s+in\s|$)`)
	roleWordsPattern = regexp.MustCompile(`(?i)\b(?:position|role|job|opening)\b`)
)

const (
	greeting = "Dear Hiring Manager,"

	openingWithBio = "I am writing to express my interest in the %s position. %s"
	openingNoBio   = "I am writing to express my interest in the %s position. I am an early-career professional who is eager to learn and contribute to your team."

	closing = "I would welcome the opportunity to discuss how I can contribute to your team. Thank you for your time and consideration."

	signOff = "Best regards,"
)

// skillsTemplates maps a detected field onto its skills paragraph. Fields
// without an entry use genericSkills.
var skillsTemplates = map[string]string{
	FieldDesign:   "I have hands-on experience creating user-centered designs, from wireframes and prototypes to polished interfaces. I enjoy collaborating with developers and stakeholders to turn ideas into intuitive experiences.",
	FieldSoftware: "I have a solid foundation in programming and software development practices, and I take pride in writing clean, maintainable code. I pick up new languages and frameworks quickly and enjoy solving technical problems.",
	FieldData:     "I am comfortable working with data, from cleaning and organizing datasets to building analyses and visualizations. I enjoy turning numbers into clear insights that support better decisions.",
}

const genericSkills = "I bring strong communication and organizational skills along with a willingness to learn quickly. I am excited to grow my career in %s and to bring energy and dedication to your team."

// profileLine is an optional line of the email: it is rendered only when
// present reports true for the profile.
type profileLine struct {
	present func(model.Profile) bool
	text    func(model.Profile) string
}

func has(field func(model.Profile) string) func(model.Profile) bool {
	return func(p model.Profile) bool { return strings.TrimSpace(field(p)) != "" }
}

var (
	portfolioOf = func(p model.Profile) string { return p.Portfolio }
	figmaOf     = func(p model.Profile) string { return p.Figma }
	resumeOf    = func(p model.Profile) string { return p.ResumeLink }
	nameOf      = func(p model.Profile) string { return p.Name }
	phoneOf     = func(p model.Profile) string { return p.Phone }
	emailOf     = func(p model.Profile) string { return p.Email }
)

var linkLines = []profileLine{
	{has(portfolioOf), func(p model.Profile) string {
		return "You can view my portfolio at " + strings.TrimSpace(p.Portfolio)
	}},
	{has(figmaOf), func(p model.Profile) string {
		return "My design work is available on Figma: " + strings.TrimSpace(p.Figma)
	}},
	{has(resumeOf), func(p model.Profile) string {
		return "My resume is available at " + strings.TrimSpace(p.ResumeLink)
	}},
}

var contactLines = []profileLine{
	{has(nameOf), func(p model.Profile) string {
		return strings.ToUpper(strings.TrimSpace(p.Name))
	}},
	{has(phoneOf), func(p model.Profile) string {
		return strings.TrimSpace(p.Phone)
	}},
	{has(emailOf), func(p model.Profile) string {
		line := strings.TrimSpace(p.Email)
		if strings.TrimSpace(p.LinkedIn) != "" {
			line += " | LinkedIn"
		}
		return line
	}},
}

func renderLines(lines []profileLine, p model.Profile) []string {
	var out []string
	for _, l := range lines {
		if l.present(p) {
			out = append(out, l.text(p))
		}
	}
	return out
}

// ExtractRole finds the role named after a "position", "role", "job" or
// "opening" marker. It returns DefaultRole when nothing matches.
func ExtractRole(description string) string {
	m := rolePattern.FindStringSubmatch(description)
	if m == nil {
		return DefaultRole
	}
	role := strings.TrimSpace(m[1])
	if role == "" {
		return DefaultRole
	}
	return role
}

// Subject builds the email subject line for role.
func Subject(role string, profile model.Profile) string {
	clean := strings.Join(strings.Fields(roleWordsPattern.ReplaceAllString(role, "")), " ")
	if clean == "" {
		clean = DefaultRole
	}
	subject := fmt.Sprintf("Application for %s Position", clean)
	if name := strings.TrimSpace(profile.Name); name != "" {
		subject += " - " + name
	}
	return subject
}

// SkillsParagraph returns the skills paragraph for a detected field.
func SkillsParagraph(field string) string {
	if tmpl, ok := skillsTemplates[field]; ok {
		return tmpl
	}
	return fmt.Sprintf(genericSkills, field)
}

// Body assembles the email body. Paragraphs are separated by a blank line;
// empty profile fields contribute nothing.
func Body(role, field string, profile model.Profile) string {
	paragraphs := []string{greeting}

	if bio := strings.TrimSpace(profile.Bio); bio != "" {
		paragraphs = append(paragraphs, fmt.Sprintf(openingWithBio, role, bio))
	} else {
		paragraphs = append(paragraphs, fmt.Sprintf(openingNoBio, role))
	}

	paragraphs = append(paragraphs, SkillsParagraph(field))

	if links := renderLines(linkLines, profile); len(links) > 0 {
		paragraphs = append(paragraphs, strings.Join(links, "\n"))
	}

	paragraphs = append(paragraphs, closing)

	signature := append([]string{signOff}, renderLines(contactLines, profile)...)
	paragraphs = append(paragraphs, strings.Join(signature, "\n"))

	return strings.Join(paragraphs, "\n\n")
}
