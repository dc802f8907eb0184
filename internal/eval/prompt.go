package eval

import (
	"fmt"

	"github.com/tiago/land-scout/internal/taxonomy"
)

// SystemInstruction renders the deterministic labeling instruction used
// for evaluation runs.
func SystemInstruction(tax taxonomy.Taxonomy) string {
	pros, cons := tax.PromptLines()
	return fmt.Sprintf(`You label reviews of motorhome and camping locations.
You receive a JSON array of review texts. For EACH review, identify every matching topic.

### PRO TOPICS ###
%s

### CON TOPICS ###
%s

### OUTPUT JSON SCHEMA ###
[
  {"pros": ["topic_key"], "cons": ["topic_key"]}
]
Return one object per input review, in input order. Respond with the JSON array only.`, pros, cons)
}
