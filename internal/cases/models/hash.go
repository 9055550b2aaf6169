package models

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// versionHashDomain separates this encoding from any other use of SHA-256 over the same bytes.
const versionHashDomain = "casework/document-version/v1"

// ComputeVersionHash fingerprints the document content: rawText, translatedText, cleanedText,
// then the original and processed image references. Every field is length-prefixed so that
// moving bytes between adjacent fields changes the digest. Attestations and the signature image
// are not content and are excluded.
func ComputeVersionHash(d CaseDocument) string {
	h := sha256.New()
	writeField(h, versionHashDomain)
	writeField(h, d.RawText)
	writeField(h, d.TranslatedText)
	writeField(h, d.CleanedText)
	writeList(h, d.OriginalImageRefs)
	writeList(h, d.ProcessedImageRefs)
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, s string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(s)))
	h.Write(n[:])
	h.Write([]byte(s))
}

func writeList(h hash.Hash, items []string) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(items)))
	h.Write(n[:])
	for _, item := range items {
		writeField(h, item)
	}
}
