package crawler

import (
	"mkcrawler/pkg/models"
	"mkcrawler/pkg/normalize"
)

// Flatten merges aggregates into four order-preserving, duplicate-free
// entity lists. Membership is by identity key, not full-value equality, and
// first-seen wins: a later aggregate colliding on one entity still
// contributes its other entities.
func Flatten(aggregates []normalize.Aggregate) (
	[]models.Reaction, []models.Note, []models.User, []models.Media,
) {
	var (
		reactions []models.Reaction
		notes     []models.Note
		users     []models.User
		media     []models.Media
	)
	seenReactions := make(map[string]bool)
	seenNotes := make(map[string]bool)
	seenUsers := make(map[string]bool)
	seenMedia := make(map[string]bool)

	for _, a := range aggregates {
		if key := a.Reaction.Key(); !seenReactions[key] {
			seenReactions[key] = true
			reactions = append(reactions, a.Reaction)
		}
		if key := a.Note.Key(); !seenNotes[key] {
			seenNotes[key] = true
			notes = append(notes, a.Note)
		}
		if key := a.User.Key(); !seenUsers[key] {
			seenUsers[key] = true
			users = append(users, a.User)
		}
		for _, m := range a.MediaList {
			if key := m.Key(); !seenMedia[key] {
				seenMedia[key] = true
				media = append(media, m)
			}
		}
	}

	return reactions, notes, users, media
}
