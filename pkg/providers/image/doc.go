// Package image turns image-generation responses into a single terminal llm.Chunk.
//
// Image backends answer with one non-streaming JSON body listing generated images
// either by URL or as base64 data. Every image becomes a markdown image reference
// in the chunk's text; base64 images are first written through an ImageStore.
package image
