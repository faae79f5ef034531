package narrative

import (
	"fmt"
	"strings"

	"github.com/DerwenAI/dylifo/pkg/vocabulary"
)

// SummaryPrompt is the fixed instruction template. Its only placeholder is
// the background block built by Background.
const SummaryPrompt = `
# Task Context
You write short factual summaries of entity resolution results. You will be given a list of facts. Each fact says that two named entities have one kind of attribute in common in one source dataset.

# Background Data
%s

# Detailed Task Description & Rules
- Write exactly one paragraph of plain prose that covers every fact above.
- Write every entity name in bold, exactly as given, e.g. **Bob Jones**.
- Describe each relationship only by the attribute and the dataset it comes from, e.g. "have an address in common from the CUSTOMERS dataset".
- Use the attribute wording exactly as given: name, address, date of birth, driver's license number, email, surname.
- Write every dataset label exactly as given.
- Do NOT use codes such as NAME, ADDRESS, DOB, DRLIC, EMAIL or SURNAME.
- Do NOT mention match levels, scores, confidence or likelihood.
- Do NOT describe the entities as a network of relationships.
- Do NOT speak of a potential relationship between individuals.
- Do NOT say the entities have shared or similar identifying information, and do NOT say anything indicates overlap.
- Do NOT speculate about why the attributes are in common.

# Examples
Background:
- **Bob Jones** and **Mary Smith**: address from the CUSTOMERS dataset

Summary:
**Bob Jones** and **Mary Smith** have an address in common from the CUSTOMERS dataset.

# Output Formatting
Return a JSON object with this structure:
{
  "summary": "<one paragraph>"
}
`

const (
	summaryFormatName        = "summary"
	summaryFormatDescription = "One paragraph summarizing which attributes the named entities have in common and from which datasets."
)

type summaryReply struct {
	Summary string `json:"summary" jsonschema:"description=One paragraph of prose with entity names in bold"`
}

// Background renders facts as the bullet list embedded in the prompt.
func Background(facts []vocabulary.RelationshipFact) string {
	var b strings.Builder
	for _, f := range facts {
		fmt.Fprintf(&b, "- **%s** and **%s**: %s from the %s dataset\n", f.EntityA, f.EntityB, f.Attribute, f.DataSource)
	}
	return strings.TrimRight(b.String(), "\n")
}

// BuildPrompt returns the complete prompt for facts.
func BuildPrompt(facts []vocabulary.RelationshipFact) string {
	return fmt.Sprintf(SummaryPrompt, Background(facts))
}
