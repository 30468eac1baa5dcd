package drafting

import (
	"fmt"
	"strings"

	"github.com/fatflowers/letterdesk/internal/models"
	"github.com/fatflowers/letterdesk/pkg/types"
)

func buildGeneratePrompt(letterType types.LetterType, d *models.IntakeData) string {
	lines := []string{
		fmt.Sprintf("You are a professional attorney drafting a formal %s.", letterType.Label()),
		"Use the details below and write a professional, 300-500 word letter:",
		"Sender name: " + d.SenderName,
		"Sender address: " + d.SenderAddress,
		"Recipient name: " + d.RecipientName,
		"Recipient address: " + d.RecipientAddress,
		"Issue description: " + d.IssueDescription,
		"Desired outcome: " + d.DesiredOutcome,
	}
	if amount := strings.TrimSpace(d.AmountDemanded); amount != "" {
		lines = append(lines, "Amount: $"+strings.TrimPrefix(amount, "$"))
	}
	if docs := strings.TrimSpace(d.SupportingDocuments); docs != "" {
		lines = append(lines, "Supporting documents: "+docs)
	}
	lines = append(lines,
		"Ensure proper legal formatting, clear demands, deadlines, and a professional tone.",
		"Return only the letter content, no additional commentary.",
	)
	return strings.Join(lines, "\n")
}

func buildImprovePrompt(content, instruction string) string {
	return fmt.Sprintf(`You are a professional legal attorney improving a formal legal letter.

Current letter content:
%s

Improvement instruction: %s

Please improve the letter according to the instruction while maintaining:
- Professional legal tone and language
- Proper letter structure and formatting
- All critical facts and details from the original
- Legal accuracy and effectiveness

Return ONLY the improved letter content, with no additional commentary or explanations.`, content, instruction)
}
