// Package report renders an audit analysis as a Word document.
package report

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"careaudit-backend/internal/analysis"
	"careaudit-backend/internal/scoring"
)

// MIMEType is the content type of generated reports.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const dateLayout = "2 January 2006"

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9]+`)

// NextReviewDate is three months after the audit date.
func NextReviewDate(auditDate time.Time) time.Time {
	return auditDate.AddDate(0, 3, 0)
}

// FileName builds the download name for a report.
func FileName(subject string, auditDate time.Time) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(strings.TrimSpace(subject), "_"), "_")
	if name == "" {
		name = "Service_User"
	}
	return fmt.Sprintf("CQC_Audit_%s_%s.docx", name, auditDate.Format("2006-01-02"))
}

// Generate renders a DOCX report. Output depends only on its arguments.
func Generate(subject string, auditDate time.Time, a analysis.Analysis) ([]byte, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = "Service user"
	}
	title := reportTitle(a.Kind)

	d := &docBuilder{}
	writeTitlePage(d, title, subject, auditDate, a)
	d.pageBreak()
	writeExecutiveSummary(d, a)
	writeSections(d, a)
	if len(a.MissingSections) > 0 {
		writeMissingAppendix(d, a.MissingSections)
	}
	writeAuditInformation(d, subject, auditDate, a)

	return packageDocx(d.document(), title+" - "+subject, auditDate)
}

func reportTitle(kind string) string {
	if kind == analysis.KindDailyNotes {
		return "CQC Daily Notes Compliance Audit"
	}
	return "CQC Care Plan Compliance Audit"
}

func writeTitlePage(d *docBuilder, title, subject string, auditDate time.Time, a analysis.Analysis) {
	d.centered(run{text: title, style: StyleMap["title"]})
	d.centered(run{text: subject, style: StyleMap["subheading"]})
	d.centered(run{text: "Audit date: " + auditDate.Format(dateLayout), style: StyleMap["body"]})
	d.centered(run{text: "Next review date: " + NextReviewDate(auditDate).Format(dateLayout), style: StyleMap["body"]})

	color := ScoreColor(a.OverallScore)
	d.centered(run{text: "Overall compliance score", style: StyleMap["label"]})
	d.centered(run{text: strconv.Itoa(a.OverallScore) + "%", style: RunStyle{Bold: true, Size: ScoreSize, Color: color}})
	d.centered(run{text: Rating(a.OverallScore), style: RunStyle{Bold: true, Size: SubheadingSize, Color: color}})
}

func writeExecutiveSummary(d *docBuilder, a analysis.Analysis) {
	d.heading("Executive Summary")
	d.table([][]string{
		{"Measure", "Count"},
		{"Sections analysed", strconv.Itoa(a.Summary.SectionsAnalyzed)},
		{"Critical issues", strconv.Itoa(a.Summary.CriticalIssues)},
		{"Major issues", strconv.Itoa(a.Summary.MajorIssues)},
		{"Minor issues", strconv.Itoa(a.Summary.MinorIssues)},
	}, []int{4800, 2400})

	if a.Summary.SectionsSkipped > 0 {
		d.text("meta", fmt.Sprintf("%d earlier entries were not analysed.", a.Summary.SectionsSkipped))
	}

	if a.Kind != analysis.KindDailyNotes {
		required := analysis.RequiredSectionCount()
		covered := required - len(a.MissingSections)
		if covered < 0 {
			covered = 0
		}
		coverage := 0
		if required > 0 {
			coverage = covered * 100 / required
		}
		d.labelled("Section coverage", fmt.Sprintf("%d%% (%d of %d required sections present)", coverage, covered, required))
	}

	if len(a.MissingSections) > 0 {
		counts := countByPriority(a.MissingSections)
		parts := make([]string, 0, len(analysis.Priorities))
		for _, p := range analysis.Priorities {
			if counts[p] > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", titleCase(p), counts[p]))
			}
		}
		d.labelled("Missing sections", strings.Join(parts, ", "))
	}
}

func writeSections(d *docBuilder, a analysis.Analysis) {
	d.heading("Detailed Findings")
	if len(a.Sections) == 0 {
		d.text("meta", "No sections were analysed.")
		return
	}
	for i, s := range a.Sections {
		d.subheading(fmt.Sprintf("%d. %s", i+1, s.SectionName))
		d.paragraph(
			run{text: "Section score: ", style: StyleMap["label"]},
			run{text: strconv.Itoa(s.Score) + "%", style: RunStyle{Bold: true, Size: BodySize, Color: ScoreColor(s.Score)}},
		)
		for _, fl := range s.ExtractedContent.Ordered() {
			d.labelled(fl.Label, fl.Value)
		}
		if s.Metadata.NextReviewDate != "" {
			d.labelled("Review date", s.Metadata.NextReviewDate)
		}
		if s.Metadata.LevelOfNeed != "" {
			d.labelled("Level of need", s.Metadata.LevelOfNeed)
		}
		if len(s.Issues) == 0 {
			d.text("meta", "No issues found.")
			continue
		}
		for _, issue := range s.Issues {
			writeIssue(d, issue)
		}
	}
}

func writeIssue(d *docBuilder, issue scoring.Issue) {
	header := fmt.Sprintf("Issue %d [%s]", issue.IssueNumber, issue.Severity)
	if issue.Field != "" {
		header += " " + issue.Field
	}
	d.paragraphWithProps(`<w:spacing w:before="160"/>`, run{text: header, style: RunStyle{Bold: true, Size: BodySize, Color: severityColor(issue.Severity)}})
	if issue.CurrentText != "" {
		d.indented("quote", "“"+issue.CurrentText+"”")
	}
	if len(issue.Problems) > 0 {
		d.text("label", "Problems")
		for _, p := range issue.Problems {
			d.bullet(p)
		}
	}
	if len(issue.MissingElements) > 0 {
		d.text("label", "Missing elements")
		for _, m := range issue.MissingElements {
			d.bullet(m)
		}
	}
	if issue.IdealExample != "" {
		d.text("label", "Ideal example")
		d.indented("quote", issue.IdealExample)
	}
	if issue.Regulation != "" {
		d.labelled("Regulation", issue.Regulation)
	}
	if issue.Recommendation != "" {
		d.labelled("Recommendation", issue.Recommendation)
	}
}

func writeMissingAppendix(d *docBuilder, missing []analysis.MissingSection) {
	d.heading("Appendix: Missing Sections")
	byPriority := make(map[string][]analysis.MissingSection)
	for _, m := range missing {
		byPriority[m.Priority] = append(byPriority[m.Priority], m)
	}
	for _, p := range analysis.Priorities {
		items := byPriority[p]
		if len(items) == 0 {
			continue
		}
		d.subheading(titleCase(p) + " priority")
		for _, m := range items {
			d.text("label", m.Name)
			d.indented("body", m.Justification)
			d.indented("meta", m.Regulation)
		}
	}
}

func writeAuditInformation(d *docBuilder, subject string, auditDate time.Time, a analysis.Analysis) {
	d.heading("Audit Information")
	d.labelled("Service user", subject)
	d.labelled("Audit type", reportTitle(a.Kind))
	d.labelled("Audit date", auditDate.Format(dateLayout))
	d.labelled("Next review date", NextReviewDate(auditDate).Format(dateLayout))
	if fm := a.FileMetadata; fm != nil {
		d.labelled("Source document", fmt.Sprintf("%s (%s, %d words)", fm.FileName, strings.ToUpper(fm.Format), fm.WordCount))
	}
	if nr := a.NameReplacement; nr != nil && nr.Replacements > 0 {
		d.labelled("Name anonymisation", fmt.Sprintf("%d replacements", nr.Replacements))
	}
	d.text("meta", "This report was produced by automated review against CQC fundamental standards. Findings should be checked by a qualified member of staff before action is taken.")
}

func severityColor(s scoring.Severity) string {
	switch s {
	case scoring.SeverityCritical:
		return RedColor
	case scoring.SeverityMajor:
		return AmberColor
	default:
		return HeadingColor
	}
}

func countByPriority(missing []analysis.MissingSection) map[string]int {
	out := make(map[string]int)
	for _, m := range missing {
		out[m.Priority]++
	}
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
