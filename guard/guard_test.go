package guard_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/focep/collecte-engine/guard"
)

var allRoles = []guard.Role{guard.RoleCollecteur, guard.RoleAdmin, guard.RoleSuperAdmin, "CAISSIER"}

// =============================================================================
// FILTER UPDATE
// =============================================================================

func TestFilterUpdate_ProtectedFieldRejectedForEveryRole(t *testing.T) {
	g := guard.New()

	for _, role := range allRoles {
		t.Run(string(role), func(t *testing.T) {
			// GIVEN: a client update touching the name and the phone
			payload := map[string]any{"nom": "Mballa", "telephone": "699123456"}

			// WHEN: filtering
			res, err := g.FilterUpdate(guard.EntityClient, role, payload)

			// THEN: the name is rejected and the phone goes through
			require.NoError(t, err)
			assert.Contains(t, res.Rejected, "nom")
			assert.Equal(t, "Champ protégé: nom ne peut pas être modifié", res.Rejected["nom"])
			assert.Equal(t, "699123456", res.Allowed["telephone"])
			assert.NotContains(t, res.Allowed, "nom")
			assert.Len(t, res.Warnings, 1)
		})
	}
}

func TestFilterUpdate_CollecteurRoleAllowList(t *testing.T) {
	g := guard.New()
	payload := map[string]any{
		"telephone":         "677000000",
		"motDePasse":        "s3cret!",
		"montantMaxRetrait": 50000.0,
		"adresseMail":       "x@y.cm",
	}

	res, err := g.FilterUpdate(guard.EntityCollecteur, guard.RoleCollecteur, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"motDePasse", "telephone"}, res.AllowedFields())
	assert.Equal(t, []string{"adresseMail", "montantMaxRetrait"}, res.RejectedFields())
	assert.Equal(t, "Champ non autorisé pour le rôle COLLECTEUR: montantMaxRetrait", res.Rejected["montantMaxRetrait"])

	res, err = g.FilterUpdate(guard.EntityCollecteur, guard.RoleAdmin, payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"montantMaxRetrait", "motDePasse", "telephone"}, res.AllowedFields())
	assert.Equal(t, []string{"adresseMail"}, res.RejectedFields(), "protected even for admins")
}

func TestFilterUpdate_ActiveIsReservedForStatusToggle(t *testing.T) {
	g := guard.New()

	for _, role := range allRoles {
		res, err := g.FilterUpdate(guard.EntityCollecteur, role, map[string]any{"active": false})
		require.NoError(t, err)
		assert.Empty(t, res.Allowed)
		assert.Contains(t, res.Rejected, "active")
	}
}

func TestFilterUpdate_DeleteEquivalentIsForbidden(t *testing.T) {
	g := guard.New()

	_, err := g.FilterUpdate(guard.EntityClient, guard.RoleSuperAdmin, map[string]any{"telephone": "699123456", "deleted": true})

	var forbidden *guard.ForbiddenOperationError
	require.ErrorAs(t, err, &forbidden)
	assert.Equal(t, "deleted", forbidden.Field)
	assert.ErrorIs(t, err, guard.ErrForbiddenOperation)
}

func TestFilterUpdate_UnknownEntityType(t *testing.T) {
	_, err := guard.New().FilterUpdate("AGENCE", guard.RoleAdmin, map[string]any{"nom": "x"})
	assert.ErrorIs(t, err, guard.ErrUnknownEntityType)
}

func TestFilterUpdate_WarningsAreSorted(t *testing.T) {
	res, err := guard.New().FilterUpdate(guard.EntityClient, guard.RoleAdmin,
		map[string]any{"prenom": "a", "agenceId": "b", "nom": "c"})
	require.NoError(t, err)
	require.Len(t, res.Warnings, 3)
	assert.Contains(t, res.Warnings[0], "agenceId")
	assert.Contains(t, res.Warnings[1], "nom")
	assert.Contains(t, res.Warnings[2], "prenom")
}

func TestNormalizeRole(t *testing.T) {
	assert.Equal(t, guard.RoleAdmin, guard.NormalizeRole("ROLE_ADMIN"))
	assert.Equal(t, guard.RoleSuperAdmin, guard.NormalizeRole(" role_super_admin "))
	assert.Equal(t, guard.RoleCollecteur, guard.NormalizeRole("collecteur"))
	assert.True(t, guard.NormalizeRole("ROLE_SUPER_ADMIN").IsAdmin())
}

func TestAllowedFields(t *testing.T) {
	g := guard.New()
	assert.Equal(t, []string{"motDePasse", "telephone"}, g.AllowedFields(guard.EntityCollecteur, guard.RoleCollecteur))
	assert.NotContains(t, g.AllowedFields(guard.EntityCollecteur, guard.RoleAdmin), "active")
	assert.Nil(t, g.AllowedFields("AGENCE", guard.RoleAdmin))
}

// =============================================================================
// DELETE AND STATUS
// =============================================================================

func TestDelete_AlwaysForbidden(t *testing.T) {
	g := guard.New()
	for _, et := range []guard.EntityType{guard.EntityClient, guard.EntityCollecteur} {
		err := g.Delete(et, "42")
		assert.ErrorIs(t, err, guard.ErrForbiddenOperation)
		assert.Contains(t, err.Error(), "42")
	}
}

func TestStatusChange_CollectorDeactivationSuggestsActions(t *testing.T) {
	sc, err := guard.New().StatusChange(guard.EntityCollecteur, "col-1", false, "  départ  ")

	require.NoError(t, err)
	assert.False(t, sc.Active)
	assert.Equal(t, "départ", sc.Reason)
	assert.Len(t, sc.NextActions, 3)
	assert.Contains(t, sc.NextActions[0], "transférer les clients")
}

func TestStatusChange_Activation(t *testing.T) {
	sc, err := guard.New().StatusChange(guard.EntityClient, "cli-1", true, "")
	require.NoError(t, err)
	assert.Empty(t, sc.NextActions)
	assert.Equal(t, "Client activé avec succès", sc.Message)

	_, err = guard.New().StatusChange(guard.EntityClient, "", true, "")
	assert.ErrorIs(t, err, guard.ErrInvalidFieldValue)
}

// =============================================================================
// VALUE VALIDATION
// =============================================================================

func TestValidateValues(t *testing.T) {
	valid := map[string]any{
		"telephone": "+237 699 12 34 56",
		"numeroCni": "CM123456",
		"latitude":  3.848,
		"longitude": json.Number("11.502"),
	}
	assert.NoError(t, guard.ValidateValues(guard.EntityClient, valid))

	invalid := map[string]any{
		"telephone": "0612345678",
		"numeroCni": "123",
		"latitude":  91.0,
		"longitude": "east",
	}
	err := guard.ValidateValues(guard.EntityClient, invalid)
	var ve *guard.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Errors, 4)

	err = guard.ValidateValues(guard.EntityCollecteur, map[string]any{"montantMaxRetrait": -5})
	assert.ErrorIs(t, err, guard.ErrInvalidFieldValue)
}
