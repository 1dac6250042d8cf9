package generator

import "fmt"

const systemPrompt = "You are a senior QA engineer specializing in comprehensive test case generation. Always respond with valid JSON format."

const userPromptTemplate = `Generate comprehensive test cases for the following software requirement:

Requirement: %s

Please provide test cases in the following JSON format:
{
    "test_cases": [
        {
            "id": 1,
            "title": "Test case title",
            "description": "Brief description",
            "preconditions": "Prerequisites for the test",
            "steps": [
                "Step 1: Action to perform",
                "Step 2: Next action",
                "Step 3: Final action"
            ],
            "expected_result": "Expected outcome",
            "priority": "High/Medium/Low",
            "type": "Functional/UI/Integration/etc"
        }
    ],
    "edge_cases": [
        {
            "scenario": "Edge case scenario",
            "test_approach": "How to test this scenario"
        }
    ]
}

Focus on:
1. Positive test cases (happy path)
2. Negative test cases (error conditions)
3. Edge cases and boundary conditions
4. User experience considerations`

func buildUserPrompt(requirement string) string {
	return fmt.Sprintf(userPromptTemplate, requirement)
}
