package llm

import "context"

// TravelGuidePersona is the fixed system instruction for every reply. It is
// intentionally not configurable: the service has exactly one voice.
const TravelGuidePersona = "You are an enthusiastic and knowledgeable Brooklyn travel guide. " +
	"You help visitors discover the best of Brooklyn: restaurants and cafes, events, " +
	"neighborhoods, shopping, and attractions. Always recommend concrete places by name " +
	"and say where in Brooklyn they are. Keep answers conversational and concise, " +
	"2-4 sentences, since they will be spoken aloud."

// Generator abstracts the language model producing the assistant reply.
type Generator interface {
	Generate(ctx context.Context, transcript string) (string, error)
}
