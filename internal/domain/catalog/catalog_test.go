package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leohfurlan/reometro-score/pkg/errors"
)

func sampleProducts() []Product {
	return []Product{
		{ID: 1, Code: 1001, Name: "MASSA PRETA 100", Kind: KindMass},
		{ID: 2, Code: 1002, Name: "Massa Branca 200", Kind: KindMass},
		{ID: 3, Code: 2001, Name: "BORRACHA NAT", Kind: KindRawMaterial},
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c := NewCatalog(sampleProducts())
	require.Equal(t, 3, c.Len())

	p, err := c.ByCode(1001)
	require.NoError(t, err)
	assert.Equal(t, "MASSA PRETA 100", p.Name)

	p, err = c.ByName("  massa branca 200 ")
	require.NoError(t, err)
	assert.Equal(t, int64(2), p.ID)

	_, err = c.ByCode(9999)
	assert.True(t, apperrors.IsNotFound(err))

	_, err = c.ByName("MASSA INEXISTENTE")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCatalog_Names(t *testing.T) {
	c := NewCatalog(sampleProducts())
	assert.Equal(t, []string{"MASSA PRETA 100", "MASSA BRANCA 200", "BORRACHA NAT"}, c.Names())
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "MASSA PRETA 100", NormalizeName("  massa preta 100 "))
	assert.True(t, HasMassPrefix("massa preta 100"))
	assert.False(t, HasMassPrefix("BORRACHA NAT"))
}

func validProfile(key ProfileKey) Profile {
	return Profile{
		Key: key,
		Params: []ParamSpec{
			{Name: "ML", Weight: 1, Target: 10, Min: 8, Max: 12},
			{Name: "MH", Weight: 2, Target: 40, Min: 35, Max: 45},
		},
	}
}

func TestParamSpec_Validate(t *testing.T) {
	assert.NoError(t, ParamSpec{Name: "ML", Weight: 1, Target: 10, Min: 8, Max: 12}.Validate())

	err := ParamSpec{Weight: 1, Target: 10, Min: 8, Max: 12}.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))

	err = ParamSpec{Name: "ML", Weight: -1, Target: 10, Min: 8, Max: 12}.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))

	err = ParamSpec{Name: "ML", Weight: 1, Target: 10, Min: 12, Max: 8}.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))

	err = ParamSpec{Name: "ML", Weight: 1, Target: 20, Min: 8, Max: 12}.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))
}

func TestProfile_Validate(t *testing.T) {
	assert.NoError(t, validProfile(ProfileHighTemp).Validate())

	err := Profile{Key: ProfileLowTemp}.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))

	zeroWeights := Profile{Key: ProfileLowTemp, Params: []ParamSpec{
		{Name: "V", Weight: 0, Target: 50, Min: 40, Max: 60},
	}}
	err = zeroWeights.Validate()
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))
}

func TestSpecSet_Lookup(t *testing.T) {
	set, err := NewSpecSet(map[string][]Profile{
		"massa preta 100": {validProfile(ProfileHighTemp), validProfile(ProfileLowTemp)},
		"MASSA BRANCA 200": {
			validProfile(ProfileHighTempA),
			validProfile(ProfileHighTempB),
		},
	})
	require.NoError(t, err)

	// Exact variant hit.
	_, err = set.Lookup("MASSA BRANCA 200", ProfileHighTempA)
	assert.NoError(t, err)

	// Variant falls back to the generic high-temperature profile.
	_, err = set.Lookup("massa preta 100", ProfileHighTempB)
	assert.NoError(t, err)

	// Low temperature never falls back to high temperature.
	_, err = set.Lookup("MASSA BRANCA 200", ProfileLowTemp)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProfileUndefined))

	_, err = set.Lookup("DESCONHECIDA", ProfileLowTemp)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeProfileUndefined))
}

func TestNewSpecSet_RejectsInvalid(t *testing.T) {
	_, err := NewSpecSet(map[string][]Profile{
		"MASSA X": {{Key: ProfileHighTemp}},
	})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeSpecInvalid))
}
