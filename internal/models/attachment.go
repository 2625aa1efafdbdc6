package models

import (
	"path"
	"strings"
)

// AttachmentKind classifies an attachment for preview routing.
type AttachmentKind string

const (
	AttachmentImage      AttachmentKind = "image"
	AttachmentPDF        AttachmentKind = "pdf"
	AttachmentExcel      AttachmentKind = "excel"
	AttachmentWord       AttachmentKind = "word"
	AttachmentPowerPoint AttachmentKind = "powerpoint"
	AttachmentCSV        AttachmentKind = "csv"
	AttachmentFile       AttachmentKind = "file"
)

// AttachmentMeta is the fetchable view of a stored attachment, derived at
// read time. URL is time-bounded; an empty URL means the attachment could
// not be resolved.
type AttachmentMeta struct {
	URL  string         `json:"url"`
	Kind AttachmentKind `json:"kind"`
	Name string         `json:"name"`
}

var extensionKinds = map[string]AttachmentKind{
	".jpg":  AttachmentImage,
	".jpeg": AttachmentImage,
	".png":  AttachmentImage,
	".gif":  AttachmentImage,
	".webp": AttachmentImage,
	".pdf":  AttachmentPDF,
	".xls":  AttachmentExcel,
	".xlsx": AttachmentExcel,
	".doc":  AttachmentWord,
	".docx": AttachmentWord,
	".ppt":  AttachmentPowerPoint,
	".pptx": AttachmentPowerPoint,
	".csv":  AttachmentCSV,
}

// InferAttachmentKind classifies an attachment. An explicit hint wins;
// otherwise the filename extension is sniffed. Unknown inputs fall back to
// the generic file kind.
func InferAttachmentKind(hint *string, name string) AttachmentKind {
	if hint != nil {
		switch k := AttachmentKind(strings.ToLower(*hint)); k {
		case AttachmentImage, AttachmentPDF, AttachmentExcel,
			AttachmentWord, AttachmentPowerPoint, AttachmentCSV:
			return k
		}
	}
	ext := strings.ToLower(path.Ext(name))
	if k, ok := extensionKinds[ext]; ok {
		return k
	}
	return AttachmentFile
}
