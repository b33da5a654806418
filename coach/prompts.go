package coach

import (
	"fmt"

	"google.golang.org/genai"
)

const systemInstruction = `You are "Hayat", an AI health companion for residents of Dubai.
Encourage natural movement and social connection. When it is hot outside,
suggest indoor alternatives such as malls and covered tracks.
Tone: encouraging, scientific yet warm, culturally respectful.
Prioritise Blue Zones principles: move naturally, right tribe, outlook, eat wisely.
Keep responses concise and actionable.`

const foodPrompt = `Analyze this food image for its biological aging impact.
1. Identify the food.
2. Estimate the glycemic load (Low/Medium/High).
3. List preservatives or inflammatory ingredients visible or typical for this food.
4. Assign an aging score from 1 (anti-aging, Blue Zone friendly) to 10 (pro-inflammatory).
5. Suggest a specific local alternative available in Dubai/UAE, preferring organic, unprocessed options.
Return strict JSON.`

func routesPrompt(location, timeOfDay string) string {
	return fmt.Sprintf(`Suggest 3 indoor walking routes in or near %s suitable for %s.
Focus on major malls or indoor walkways.
Return a JSON array of objects with name, location, distance (km), duration (min),
crowdLevel (Low/Moderate/High) and features.`, location, timeOfDay)
}

func str() *genai.Schema {
	return &genai.Schema{Type: genai.TypeString}
}

func strList() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: str()}
}

func routesSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeArray,
		Items: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"name":       str(),
				"location":   str(),
				"distance":   str(),
				"duration":   str(),
				"crowdLevel": {Type: genai.TypeString, Enum: []string{"Low", "Moderate", "High"}},
				"features":   strList(),
			},
		},
	}
}

func foodSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"foodName":      str(),
			"agingScore":    {Type: genai.TypeInteger, Description: "1 to 10 scale"},
			"glycemicLoad":  {Type: genai.TypeString, Enum: []string{"Low", "Medium", "High"}},
			"preservatives": strList(),
			"analysis":      {Type: genai.TypeString, Description: "Short explanation of the score"},
			"suggestion": {
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"name":     str(),
					"reason":   str(),
					"location": {Type: genai.TypeString, Description: "Local market or farm"},
				},
			},
		},
	}
}
