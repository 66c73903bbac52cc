package badger

import (
	"encoding/binary"
	"time"
)

// Key prefixes for different data types. Every prefix ends in a separator so
// no prefix is a prefix of another.
const (
	jobPrefix        = "vjob:"
	jobHashPrefix    = "vjobh:"
	transcriptPrefix = "vtrn:"
	notesPrefix      = "vnot:"
	chunkPrefix      = "vchk:"
	chunkHashPrefix  = "vchh:"
)

// makeJobKey generates a key for a job by ID.
func makeJobKey(id string) []byte {
	return []byte(jobPrefix + id)
}

// makeJobHashKey generates a composite key for the canonical hash index.
// Format: prefix:hash:createdAt:id
func makeJobHashKey(hash string, createdAt time.Time, id string) []byte {
	prefix := makePartialJobHashKey(hash)
	buf := make([]byte, len(prefix)+8, len(prefix)+8+len(id))
	offset := copy(buf, prefix)
	// BigEndian so lexicographic order is creation order
	binary.BigEndian.PutUint64(buf[offset:], uint64(createdAt.UnixMicro()))
	return append(buf, id...)
}

// makePartialJobHashKey generates the prefix shared by all jobs with a hash.
func makePartialJobHashKey(hash string) []byte {
	return []byte(jobHashPrefix + hash + ":")
}

func makeTranscriptKey(videoID string) []byte {
	return []byte(transcriptPrefix + videoID)
}

func makeNotesKey(videoID string) []byte {
	return []byte(notesPrefix + videoID)
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:videoID:startMs
func makeChunkKey(videoID string, startMs int64) []byte {
	prefix := makePartialChunkKey(videoID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], uint64(startMs))
	return buf
}

// makePartialChunkKey generates the prefix shared by all chunks of a video.
func makePartialChunkKey(videoID string) []byte {
	return []byte(chunkPrefix + videoID + ":")
}

// makeChunkHashKey generates a composite key for the text-hash index.
// Format: prefix:textHash:chunkKey
func makeChunkHashKey(textHash string, chunkKey []byte) []byte {
	prefix := makePartialChunkHashKey(textHash)
	buf := make([]byte, 0, len(prefix)+len(chunkKey))
	buf = append(buf, prefix...)
	return append(buf, chunkKey...)
}

func makePartialChunkHashKey(textHash string) []byte {
	return []byte(chunkHashPrefix + textHash + ":")
}
