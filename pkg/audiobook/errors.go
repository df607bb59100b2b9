package audiobook

import (
	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind int

const (
	NotADirectory Kind = iota + 1
	NotAFile
	EmptyFolder
	MixedFilesInFolder
	NoParentDirectory
	PrimaryTagMissing
	NoChapterTrack
	ContainerDecode
	TagDecode
	IO
)

var kindMessages = map[Kind]string{
	NotADirectory:      "not a directory",
	NotAFile:           "not a file",
	EmptyFolder:        "folder has no audio files",
	MixedFilesInFolder: "folder mixes files from different books",
	NoParentDirectory:  "path has no parent directory",
	PrimaryTagMissing:  "file has no primary tag",
	NoChapterTrack:     "container has no chapter track",
	ContainerDecode:    "container decode failed",
	TagDecode:          "tag decode failed",
	IO:                 "i/o error",
}

func (k Kind) String() string {
	if msg, ok := kindMessages[k]; ok {
		return msg
	}
	return "unknown error"
}

// Error is returned by every build operation. Err holds the underlying cause
// for the decode and i/o kinds.
type Error struct {
	Kind Kind
	Path string
	Err  error
}

// Sentinels for use with errors.Is. Matching is done on Kind only.
var (
	ErrNotADirectory      = &Error{Kind: NotADirectory}
	ErrNotAFile           = &Error{Kind: NotAFile}
	ErrEmptyFolder        = &Error{Kind: EmptyFolder}
	ErrMixedFilesInFolder = &Error{Kind: MixedFilesInFolder}
	ErrNoParentDirectory  = &Error{Kind: NoParentDirectory}
	ErrPrimaryTagMissing  = &Error{Kind: PrimaryTagMissing}
	ErrNoChapterTrack     = &Error{Kind: NoChapterTrack}
	ErrContainerDecode    = &Error{Kind: ContainerDecode}
	ErrTagDecode          = &Error{Kind: TagDecode}
	ErrIO                 = &Error{Kind: IO}
)

func (err *Error) Error() string {
	msg := err.Kind.String()
	if err.Path != "" {
		msg += ": " + err.Path
	}
	if err.Err != nil {
		msg += ": " + err.Err.Error()
	}
	return msg
}

func (err *Error) Unwrap() error {
	return err.Err
}

func (err *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return te.Kind == err.Kind
}

// NewError returns an Error of the given kind with a stack attached.
func NewError(kind Kind, path string, cause error) error {
	return errors.WithStack(&Error{Kind: kind, Path: path, Err: cause})
}

// KindOf returns the Kind of the first Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
