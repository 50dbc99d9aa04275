package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/MiaowFISH/emohub/services"
)

type BatchTagInput struct {
	ImageIDs []string `json:"imageIds"`
	TagIDs   []string `json:"tagIds"`
}

// ListTags returns up to 100 tags alphabetically, optionally filtered by a
// name substring.
func ListTags(c *gin.Context) {
	tags, err := services.ListTags(c.Query("search"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to list tags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tags})
}

// CreateTag is an idempotent create-or-fetch by normalized name.
func CreateTag(c *gin.Context) {
	var input struct {
		Name     string `json:"name"`
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tag, err := services.CreateTag(input.Name, input.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": tag})
}

// RenameTag renames a tag, enforcing unique names.
func RenameTag(c *gin.Context) {
	var input struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	tag, err := services.RenameTag(c.Param("id"), input.Name)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrTagNotFound):
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
		case errors.Is(err, services.ErrTagNameTaken):
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tag})
}

// DeleteTag deletes a tag and its associations; images are untouched.
func DeleteTag(c *gin.Context) {
	tag, err := services.DeleteTag(c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrTagNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tag})
}

// BatchAddTags associates every (image, tag) pair, skipping pairs that
// already exist.
func BatchAddTags(c *gin.Context) {
	input, ok := bindBatchTagInput(c)
	if !ok {
		return
	}

	if err := services.BatchAddTags(input.ImageIDs, input.TagIDs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// BatchRemoveTags removes exactly the named pairs; absent pairs are a no-op.
func BatchRemoveTags(c *gin.Context) {
	input, ok := bindBatchTagInput(c)
	if !ok {
		return
	}

	if err := services.BatchRemoveTags(input.ImageIDs, input.TagIDs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetImageTags lists the tags attached to one image.
func GetImageTags(c *gin.Context) {
	tags, err := services.GetImageTags(c.Param("imageId"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to get image tags"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": tags})
}

// bindBatchTagInput parses and validates the batch association body. An
// empty array is rejected the same way as a missing one.
func bindBatchTagInput(c *gin.Context) (*BatchTagInput, bool) {
	var input BatchTagInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return nil, false
	}
	if len(input.ImageIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "imageIds array is required"})
		return nil, false
	}
	if len(input.TagIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "tagIds array is required"})
		return nil, false
	}
	return &input, true
}
