package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MiaowFISH/emohub/database"
	"github.com/MiaowFISH/emohub/models"
)

func TestNormalizeTagName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cat", "cat"},
		{" Cat ", "cat"},
		{"CAT", "cat"},
		{"  ", ""},
		{"Blue Archive", "blue archive"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeTagName(tt.in))
	}
}

func TestCreateTag(t *testing.T) {
	setupTest(t)

	t.Run("creates with default category", func(t *testing.T) {
		tag, err := CreateTag("Cute", "")
		require.NoError(t, err)
		assert.Equal(t, "cute", tag.Name)
		assert.Equal(t, models.TagCategoryKeyword, tag.Category)
		assert.NotEmpty(t, tag.ID)
	})

	t.Run("idempotent across normalization", func(t *testing.T) {
		first, err := CreateTag(" Cat ", "")
		require.NoError(t, err)

		second, err := CreateTag("cat", models.TagCategoryCharacter)
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)

		var count int64
		require.NoError(t, database.DB.Model(&models.Tag{}).Where("name = ?", "cat").Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})

	t.Run("rejects empty and whitespace names", func(t *testing.T) {
		_, err := CreateTag("", "")
		assert.ErrorIs(t, err, ErrEmptyTagName)
		_, err = CreateTag("   ", "")
		assert.ErrorIs(t, err, ErrEmptyTagName)
	})
}

func TestRenameTag(t *testing.T) {
	setupTest(t)

	a, err := CreateTag("alpha", "")
	require.NoError(t, err)
	b, err := CreateTag("beta", "")
	require.NoError(t, err)

	t.Run("renames and normalizes", func(t *testing.T) {
		renamed, err := RenameTag(a.ID, " Gamma ")
		require.NoError(t, err)
		assert.Equal(t, "gamma", renamed.Name)
	})

	t.Run("conflict leaves both tags unchanged", func(t *testing.T) {
		_, err := RenameTag(a.ID, "Beta")
		assert.ErrorIs(t, err, ErrTagNameTaken)

		// Fresh destination per fetch: gorm folds a populated primary key on
		// the dest into the WHERE clause.
		var renamed models.Tag
		require.NoError(t, database.DB.First(&renamed, "id = ?", a.ID).Error)
		assert.Equal(t, "gamma", renamed.Name)

		var other models.Tag
		require.NoError(t, database.DB.First(&other, "id = ?", b.ID).Error)
		assert.Equal(t, "beta", other.Name)
	})

	t.Run("rename to own name is allowed", func(t *testing.T) {
		renamed, err := RenameTag(b.ID, "BETA")
		require.NoError(t, err)
		assert.Equal(t, "beta", renamed.Name)
	})

	t.Run("unknown id", func(t *testing.T) {
		_, err := RenameTag("missing", "whatever")
		assert.ErrorIs(t, err, ErrTagNotFound)
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := RenameTag(b.ID, "  ")
		assert.ErrorIs(t, err, ErrEmptyTagName)
	})
}

func TestBatchTagAssociations(t *testing.T) {
	setupTest(t)

	img1 := models.Image{Hash: "hash-1", OriginalName: "one.png"}
	img2 := models.Image{Hash: "hash-2", OriginalName: "two.png"}
	require.NoError(t, database.DB.Create(&img1).Error)
	require.NoError(t, database.DB.Create(&img2).Error)

	cute, err := CreateTag("cute", "")
	require.NoError(t, err)
	cat, err := CreateTag("cat", "")
	require.NoError(t, err)

	assocCount := func() int64 {
		var n int64
		require.NoError(t, database.DB.Model(&models.ImageTag{}).Count(&n).Error)
		return n
	}

	t.Run("associates every pair", func(t *testing.T) {
		require.NoError(t, BatchAddTags([]string{img1.ID, img2.ID}, []string{cute.ID, cat.ID}))
		assert.EqualValues(t, 4, assocCount())
	})

	t.Run("re-adding is a no-op, not an error", func(t *testing.T) {
		require.NoError(t, BatchAddTags([]string{img1.ID}, []string{cute.ID}))
		assert.EqualValues(t, 4, assocCount())
	})

	t.Run("removal deletes exactly the named pairs", func(t *testing.T) {
		require.NoError(t, BatchRemoveTags([]string{img1.ID}, []string{cute.ID}))
		assert.EqualValues(t, 3, assocCount())

		tags, err := GetImageTags(img1.ID)
		require.NoError(t, err)
		require.Len(t, tags, 1)
		assert.Equal(t, "cat", tags[0].Name)
	})

	t.Run("removing an absent pair is a no-op", func(t *testing.T) {
		require.NoError(t, BatchRemoveTags([]string{img1.ID}, []string{cute.ID}))
		assert.EqualValues(t, 3, assocCount())
	})
}

func TestListTags(t *testing.T) {
	setupTest(t)

	img := models.Image{Hash: "hash-x", OriginalName: "x.png"}
	require.NoError(t, database.DB.Create(&img).Error)

	zebra, err := CreateTag("zebra", "")
	require.NoError(t, err)
	_, err = CreateTag("apple", "")
	require.NoError(t, err)
	_, err = CreateTag("applesauce", "")
	require.NoError(t, err)

	require.NoError(t, BatchAddTags([]string{img.ID}, []string{zebra.ID}))

	t.Run("alphabetical with counts", func(t *testing.T) {
		tags, err := ListTags("")
		require.NoError(t, err)
		require.Len(t, tags, 3)
		assert.Equal(t, "apple", tags[0].Name)
		assert.Equal(t, "applesauce", tags[1].Name)
		assert.Equal(t, "zebra", tags[2].Name)
		assert.EqualValues(t, 0, tags[0].ImageCount)
		assert.EqualValues(t, 1, tags[2].ImageCount)
	})

	t.Run("substring search is case-insensitive", func(t *testing.T) {
		tags, err := ListTags("APPLE")
		require.NoError(t, err)
		assert.Len(t, tags, 2)
	})

	t.Run("no matches returns empty slice", func(t *testing.T) {
		tags, err := ListTags("nothing")
		require.NoError(t, err)
		assert.NotNil(t, tags)
		assert.Empty(t, tags)
	})
}

func TestDeleteTag(t *testing.T) {
	setupTest(t)

	img := models.Image{Hash: "hash-y", OriginalName: "y.png"}
	require.NoError(t, database.DB.Create(&img).Error)
	tag, err := CreateTag("doomed", "")
	require.NoError(t, err)
	require.NoError(t, BatchAddTags([]string{img.ID}, []string{tag.ID}))

	deleted, err := DeleteTag(tag.ID)
	require.NoError(t, err)
	assert.Equal(t, tag.ID, deleted.ID)

	t.Run("associations cascade, image survives", func(t *testing.T) {
		var n int64
		require.NoError(t, database.DB.Model(&models.ImageTag{}).Count(&n).Error)
		assert.EqualValues(t, 0, n)

		var img2 models.Image
		assert.NoError(t, database.DB.First(&img2, "id = ?", img.ID).Error)
	})

	t.Run("deleting again reports not found", func(t *testing.T) {
		_, err := DeleteTag(tag.ID)
		assert.True(t, errors.Is(err, ErrTagNotFound))
	})
}
