// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package render

import (
	"github.com/gabriel-vasile/mimetype"
)

// Filenames used for rendered images.
const (
	// ImageFilename names images from the /mdj command.
	ImageFilename = "mdj.png"
	// LanguageFilename names images rendered through the language registry.
	LanguageFilename = "image.png"
)

// Payload is what gets posted back to the chat: a message body, a file or both.
type Payload struct {
	Content string
	File    *File
}

// File is an attachment to post.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// NewFile wraps data as an attachment, detecting its content type.
func NewFile(name string, data []byte) *File {
	return &File{
		Name:        name,
		ContentType: mimetype.Detect(data).String(),
		Data:        data,
	}
}
