package core

import "fmt"

const analysisPromptTemplate = `You are an AI assistant specialized in analyzing legal documents.
Below is the text of a legal document, followed by a user's question about it.

DOCUMENT:
"""
%s
"""

USER QUESTION: %s

Provide a helpful, accurate answer based solely on the document content.
If the document doesn't contain information to answer the question, clearly state that.
In your answer, include direct relevant quotes from the document that support your answer.

Respond with a JSON object with the following structure:
{
  "answer": "Your detailed answer to the user's question",
  "references": [
    {
      "text": "Direct quote from the document that supports your answer",
      "location": "Section or paragraph identifier if available"
    }
  ]
}`

// BuildAnalysisPrompt embeds a bounded document excerpt and the user's
// question into the analysis instruction template. The document text is
// truncated to budget characters, keeping the prefix; the cutoff counts
// runes so a multi-byte character is never split.
func BuildAnalysisPrompt(documentText, query string, budget int) string {
	return fmt.Sprintf(analysisPromptTemplate, truncate(documentText, budget), query)
}

func truncate(text string, budget int) string {
	if budget <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return string(runes[:budget])
}
