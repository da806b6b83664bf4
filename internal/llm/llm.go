// Package llm summarizes raw pull request activity into polished report
// sections. Two hosted backends are supported; both consume the same prompt
// and plug into the generator as interchangeable summarizers.
package llm

const summaryInstructions = `Summarize the commit messages for each PR while maintaining the following rules:
1. Format the PR title exactly as shown in the example, including the PR number and link.
2. Extract and summarize key points from commit messages and its details into maximum 5 bullet points for Key Changes Implemented
3. Description must be a single sentence summary of the Key Changes Implemented
4. Format code-related terms with backticks
5. Maintain the exact structure of the example format (PR name, PR number with GitHub link, Description, Status, and Key Changes Implemented)
6. Use PR title as Description and Key Changes Implemented if no commit details exist
7. Always use "leave_this_blank" for the Status field
8. Key Changes Implemented should not have a sub-bullet point

Only provide the formatted output in your response.
Use the following format for each PR:

* test(core): increase code coverage for ` + "`/core/personnel/api/v1`" + ` module [#1842](https://github.com/acme/platform-api/pull/1842)
    * **Description:** Enhanced test coverage through improved MSS integration, notification services, and null handling implementations.
    * **Status:** leave_this_blank
    * **Key Changes Implemented:**
        * Enhanced ` + "`MssEmployeeApiController`" + ` with ` + "`Optional`" + `
        * Simplified notification config services using ` + "`map()`" + `
        * Updated tests for better null handling and mocking

Here are the PRs you need to summarize:
`

func summaryPrompt(content string) string {
	return summaryInstructions + content
}
