package domain

import "errors"

// Sentinel errors for library and playback operations
var (
	// ErrPathNotFound indicates a stored reference resolved to no existing file
	ErrPathNotFound = errors.New("media file not found")

	// ErrDecode indicates the decoder could not open or read a source video
	ErrDecode = errors.New("unable to decode media")

	// ErrNoAudioTrack indicates the source video has no audio stream to extract
	ErrNoAudioTrack = errors.New("no audio track found")

	// ErrDevice indicates the audio output device rejected a load or play
	ErrDevice = errors.New("audio device error")

	// ErrLibraryFormat indicates the library document is missing, unparseable or empty
	ErrLibraryFormat = errors.New("invalid library file")

	// ErrSongNotFound indicates the song ID is not part of the library
	ErrSongNotFound = errors.New("song not found")

	// ErrInvalidMedia indicates an import candidate failed validation
	ErrInvalidMedia = errors.New("invalid media file")
)
