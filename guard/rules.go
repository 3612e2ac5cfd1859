package guard

// FieldActive is reserved for StatusChange.
const FieldActive = "active"

// deleteEquivalent payload keys turn an update into a deletion.
var deleteEquivalent = map[string]bool{
	"deleted":   true,
	"deletedAt": true,
	"supprime":  true,
}

// FieldRules is the static table for one entity type.
type FieldRules struct {
	Protected []string
	// Common fields are allowed for every role.
	Common []string
	// ByRole adds fields for specific roles.
	ByRole map[Role][]string
}

func (r FieldRules) isProtected(field string) bool {
	for _, p := range r.Protected {
		if p == field {
			return true
		}
	}
	return false
}

func (r FieldRules) allowedFor(role Role) map[string]bool {
	out := make(map[string]bool, len(r.Common))
	for _, f := range r.Common {
		out[f] = true
	}
	for _, f := range r.ByRole[role] {
		out[f] = true
	}
	for _, p := range r.Protected {
		delete(out, p)
	}
	delete(out, FieldActive)
	return out
}

// DefaultRules returns a fresh copy of the production tables.
func DefaultRules() map[EntityType]FieldRules {
	collecteurAdmin := []string{"telephone", "motDePasse", "montantMaxRetrait", "fcmToken"}
	return map[EntityType]FieldRules{
		EntityClient: {
			Protected: []string{"nom", "prenom", "numeroCompte", "collecteurId", "agenceId"},
			Common: []string{
				"telephone", "numeroCni", "ville", "quartier",
				"latitude", "longitude", "coordonneesSaisieManuelle",
				"adresseComplete", "photoPath",
			},
		},
		EntityCollecteur: {
			Protected: []string{"nom", "prenom", "adresseMail", "agenceId"},
			ByRole: map[Role][]string{
				RoleCollecteur: {"telephone", "motDePasse"},
				RoleAdmin:      collecteurAdmin,
				RoleSuperAdmin: collecteurAdmin,
			},
		},
	}
}
