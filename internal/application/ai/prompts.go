package ai

import (
	"fmt"
	"strings"

	"github.com/JosephChataignon/hAIckers-team/internal/domain/nutrition"
	"github.com/JosephChataignon/hAIckers-team/internal/ports/inbound"
)

const (
	nutritionistSystemPrompt = "You are a nutritionist AI that provides personalized dietary recommendations. Always respond with valid JSON format."
	cookSystemPrompt         = "You are a helpful assistant for nutrition and cooking."
)

const recommendationFormat = `Format your response as a JSON object with the following structure:
{
    "recipe 1" : {
        "title": "<the recipe's name>",
        "instructions": "<instructions of the recipe>",
        "time": "<estimated preparation time in minutes>",
        "ingredients": [
            "<ingredient 1 (with quantity)>",
            "<ingredient 2 (with quantity)>",
            etc.
        ],
        "calories": <number, estimated amount of calories>,
        "fiber": <number, estimated amount of fiber>,
        "protein": <number, estimated amount of protein>
    },
    "recipe 2" : {
        follow the same structure as recipe 1
    },
    "recipe 3" : {
        follow the same structure as recipe 1
    }
}`

const recommendationExample = `Here is an example:
{
    "recipe 1": {
        "title": "Classic Gazpacho",
        "instructions": "1. Combine all ingredients in a blender. 2. Blend until smooth. 3. Strain the mixture through a fine-mesh sieve into a large bowl, pressing on the solids to extract as much liquid as possible. 4. Discard the solids and chill the soup in the refrigerator for at least 2 hours. 5. Serve cold, garnished with diced cucumber, bell pepper, and croutons if desired.",
        "time": 20,
        "ingredients": [
            "1.5 kg tomatoes",
            "1 cucumber",
            "1 red bell pepper",
            "1 small red onion",
            "2 cloves garlic",
            "500 ml tomato juice",
            "120 ml extra-virgin olive oil",
            "30 ml red wine vinegar",
            "Salt and pepper"
        ],
        "calories": 500,
        "fiber": 10,
        "protein": 20
    },
    "recipe 2": {
        "title": "Caprese Salad",
        "instructions": "1. Slice the tomatoes and mozzarella into 1/4-inch thick slices. 2. Arrange the tomato and mozzarella slices alternately on a platter. 3. Drizzle with olive oil and balsamic glaze. 4. Sprinkle with salt and pepper to taste. 5. Garnish with fresh basil leaves. 6. Serve immediately.",
        "time": 15,
        "ingredients": [
            "4 large tomatoes",
            "250 g fresh mozzarella cheese",
            "1/4 cup fresh basil leaves",
            "2 tbsp extra-virgin olive oil",
            "2 tbsp balsamic glaze",
            "Salt and pepper"
        ],
        "calories": 450,
        "fiber": 12,
        "protein": 18
    },
    "recipe 3": {
        "title": "Chicken Caesar Salad",
        "instructions": "1. In a large bowl, combine the chopped romaine lettuce, grilled chicken breast, croutons, and shredded Parmesan cheese. 2. In a small bowl, whisk together the Caesar dressing and lemon juice. 3. Pour the dressing over the salad and toss to coat evenly. 4. Season with salt and pepper to taste. 5. Serve immediately.",
        "time": 20,
        "ingredients": [
            "1 head romaine lettuce",
            "2 chicken breasts",
            "2 cups croutons",
            "1/2 cup shredded Parmesan cheese",
            "1/2 cup Caesar dressing",
            "1 tbsp lemon juice",
            "Salt and pepper"
        ],
        "calories": 520,
        "fiber": 12,
        "protein": 25
    }
}`

// buildGoalsPrompt asks for daily goals as a bare JSON object
func buildGoalsPrompt(q inbound.GoalsQuery) string {
	var prompt strings.Builder

	prompt.WriteString("Based on the following user profile, generate personalized daily dietary goals:\n\n")
	prompt.WriteString("User Profile:\n")
	prompt.WriteString(fmt.Sprintf("- Age: %d years\n", q.Age))
	prompt.WriteString(fmt.Sprintf("- Sex: %s\n", q.Sex))
	prompt.WriteString(fmt.Sprintf("- Weight: %s kg\n", formatQuantity(q.WeightKg)))
	prompt.WriteString(fmt.Sprintf("- Height: %s cm\n\n", formatQuantity(q.HeightCm)))

	prompt.WriteString("Please provide daily intake recommendations for:\n")
	prompt.WriteString("1. Calories (considering moderate activity level, in kCal/day)\n")
	prompt.WriteString("2. Fiber (in grams/day)\n")
	prompt.WriteString("3. Protein (in grams/day)\n\n")

	prompt.WriteString("Format your response as a JSON object with the following structure:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("    \"explanation\": \"<brief explanation of the recommendations>\",\n")
	prompt.WriteString("    \"calories\": <number>,\n")
	prompt.WriteString("    \"fiber\": <number>,\n")
	prompt.WriteString("    \"protein\": <number>\n")
	prompt.WriteString("}\n\n")

	prompt.WriteString("Consider standard nutritional guidelines and the user's specific profile.\n")
	prompt.WriteString("Limit your response to the block of JSON.\n")

	return prompt.String()
}

// goalsConstraint renders the stored goals with their per-meal share. When
// the stored text is not valid goals JSON it is returned unchanged and ok is
// false.
func goalsConstraint(stored string) (text string, ok bool) {
	goals, err := nutrition.ParseGoals(stored)
	if err != nil {
		return stored, false
	}

	share := goals.PerMeal()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Calories: %s kCal/day (%d kCal per meal)\n", goals.Calories, share.Calories))
	b.WriteString(fmt.Sprintf("Fiber: %s g/day (%d grams per meal)\n", goals.Fiber, share.Fiber))
	b.WriteString(fmt.Sprintf("Protein: %s g/day (%d grams per meal)", goals.Protein, share.Protein))
	return b.String(), true
}

// buildRecommendationPrompt asks for exactly three recipes keyed "recipe 1..3"
func buildRecommendationPrompt(restrictions, preferences, goals string) string {
	if strings.TrimSpace(restrictions) == "" {
		restrictions = "None"
	}

	var prompt strings.Builder

	prompt.WriteString("Please generate 3 recipes, with the following constraints:\n")
	prompt.WriteString(fmt.Sprintf("- The client has the following dietary and preferences: %s\n", restrictions))
	prompt.WriteString(fmt.Sprintf("- The client has given the following instructions for today: %s\n", preferences))
	prompt.WriteString(fmt.Sprintf("- Dietary Goals: %s\n\n", goals))

	prompt.WriteString(recommendationFormat)
	prompt.WriteString("\n\n---\n\n")
	prompt.WriteString(recommendationExample)
	prompt.WriteString("\n\n---\n\n")

	prompt.WriteString("Try to give varied recipes. Do not add styling, markdown or line breaks inside the instructions.\n")
	prompt.WriteString("The recipes need to be JSON-safe, this is important !\n")

	return prompt.String()
}

func formatQuantity(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
