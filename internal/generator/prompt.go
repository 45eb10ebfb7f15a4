package generator

import (
	"fmt"
	"strings"

	"github.com/testgenius/testgenius/internal/testcase"
)

// categoryGuidelines steer the model toward the kind of coverage each
// category exists for. The wording matters less than keeping the categories
// disjoint, so guidelines name what belongs in the category and what gets
// covered elsewhere.
var categoryGuidelines = map[testcase.Category]string{
	testcase.CategoryPositive: "Write test cases that verify the feature works as described when " +
		"users follow the expected path with valid inputs. Cover every acceptance criterion at " +
		"least once. Do not include error handling or invalid inputs here.",
	testcase.CategoryNegative: "Write test cases that verify the feature handles invalid inputs, " +
		"unauthorized access, and failure conditions gracefully. Each case should attempt " +
		"something the feature must reject or recover from.",
	testcase.CategoryEdgeCase: "Write test cases for boundary values, empty states, maximum " +
		"lengths, concurrent actions, and unusual but valid combinations. Focus on inputs at the " +
		"limits of what the acceptance criteria allow.",
	testcase.CategoryDataFlow: "Write test cases that trace data through the system: where values " +
		"originate, how they are transformed, persisted, and displayed. Verify data stays " +
		"consistent across every step, using the data dictionary where one is provided.",
	testcase.CategoryAmbiguity: "Identify requirements in the story that are ambiguous, " +
		"contradictory, or underspecified, and write test cases that would expose each gap. For " +
		"each case, the expected result should state the clarification needed from the story's author.",
}

// BuildPrompt assembles the provider-agnostic prompt for one category.
func BuildPrompt(req *testcase.GenerationRequest, category testcase.Category) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a senior QA engineer. Generate %s test cases for the following user story.\n\n", category)
	fmt.Fprintf(&b, "## User Story\nTitle: %s\n\n%s\n", req.StoryTitle, req.StoryDescription)

	if req.AcceptanceCriteria != "" {
		fmt.Fprintf(&b, "\n## Acceptance Criteria\n%s\n", req.AcceptanceCriteria)
	}
	if req.DataDictionary != "" {
		fmt.Fprintf(&b, "\n## Data Dictionary\n%s\n", req.DataDictionary)
	}
	if len(req.RelatedStories) > 0 {
		b.WriteString("\n## Related Stories\nUse these for context on how the feature interacts with the rest of the system. Do not write test cases for them.\n")
		for _, rs := range req.RelatedStories {
			fmt.Fprintf(&b, "- %s: %s\n", rs.Title, rs.Description)
		}
	}

	fmt.Fprintf(&b, "\n## Guidelines\n%s\n", categoryGuidelines[category])

	b.WriteString(`
## Output Format
Respond with ONLY a JSON array, no markdown fences and no prose. Each element must have exactly these fields:
- "id": string, a short unique identifier like "` + string(category.IDPrefix()) + `-1"
- "title": string, a one-line summary of what the case verifies
- "priority": string, one of "Critical", "High", "Medium", "Low"
- "description": array of strings, the numbered steps a tester performs
- "expectedResult": string, the observable outcome of the final step
`)

	return b.String()
}
