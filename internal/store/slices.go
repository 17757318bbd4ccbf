package store

import "time"

// CroppedVideo is a finished clip. Records are never edited after creation.
type CroppedVideo struct {
	ID          string  `json:"id"`
	URI         string  `json:"uri"`
	Thumbnail   *string `json:"thumbnail"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
}

// SelectedVideo is the source the user is currently trimming.
type SelectedVideo struct {
	URI        string `json:"uri"`
	DurationMs int64  `json:"duration_ms"`
}

// videoSlice is the durable half of the store.
type videoSlice struct {
	CroppedVideos    []CroppedVideo `json:"croppedVideos"`
	VideoName        string         `json:"videoName"`
	VideoDescription string         `json:"videoDescription"`
}

func (s *videoSlice) add(v CroppedVideo) {
	s.CroppedVideos = append(s.CroppedVideos, v)
}

func (s *videoSlice) remove(id string) bool {
	kept := s.CroppedVideos[:0]
	removed := false
	for _, v := range s.CroppedVideos {
		if v.ID == id {
			removed = true
			continue
		}
		kept = append(kept, v)
	}
	s.CroppedVideos = kept
	return removed
}

func (s *videoSlice) cleanBoth() {
	s.VideoName = ""
	s.VideoDescription = ""
}

// selectedVideoSlice is working state for the crop in progress. It is never persisted.
type selectedVideoSlice struct {
	SelectedVideo *SelectedVideo
	CropStartTime time.Duration
}

func (s *selectedVideoSlice) clean() {
	s.SelectedVideo = nil
	s.CropStartTime = 0
}

// State is a point-in-time copy of the whole store.
type State struct {
	CroppedVideos    []CroppedVideo `json:"croppedVideos"`
	VideoName        string         `json:"videoName"`
	VideoDescription string         `json:"videoDescription"`
	SelectedVideo    *SelectedVideo `json:"selectedVideo"`
	CropStartTime    time.Duration  `json:"cropStartTime"`
}

// persistedState is what partialize keeps: the video slice only.
type persistedState = videoSlice

type snapshot struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}
