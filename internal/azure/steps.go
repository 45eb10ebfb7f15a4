package azure

import (
	"fmt"
	"strings"

	"github.com/testgenius/testgenius/internal/testcase"
)

// xmlEscaper covers all five reserved characters. Attribute values in the
// steps document use double quotes, but Azure DevOps also renders the text
// through HTML, so apostrophes get escaped too.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeXML escapes text for embedding in the steps XML document.
func EscapeXML(s string) string {
	return xmlEscaper.Replace(s)
}

// FormatSteps renders test steps in the XML dialect the
// Microsoft.VSTS.TCM.Steps field expects. The expected result attaches to
// the last step only; a case with no steps but an expected result gets a
// single placeholder step carrying it. With neither, the result is empty
// and the field is omitted from the work item.
func FormatSteps(steps []string, expectedResult string) string {
	if len(steps) == 0 {
		if expectedResult == "" {
			return ""
		}
		steps = []string{"Execute test steps"}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<steps id=\"0\" last=\"%d\">", len(steps))
	for i, step := range steps {
		expected := ""
		if i == len(steps)-1 {
			expected = expectedResult
		}
		fmt.Fprintf(&b,
			"<step id=\"%d\" type=\"ActionStep\">"+
				"<parameterizedString isformatted=\"true\">%s</parameterizedString>"+
				"<parameterizedString isformatted=\"true\">%s</parameterizedString>"+
				"<description/></step>",
			i+1, EscapeXML(step), EscapeXML(expected))
	}
	b.WriteString("</steps>")
	return b.String()
}

// StepsXML renders the steps document for one test case, stripping any
// leading step numbers the model included in the step text.
func StepsXML(tc testcase.TestCase) string {
	steps := make([]string, 0, len(tc.Description))
	for _, step := range tc.Description {
		if cleaned := testcase.StripStepNumber(step); cleaned != "" {
			steps = append(steps, cleaned)
		}
	}
	return FormatSteps(steps, tc.ExpectedResult)
}
