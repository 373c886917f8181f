//go:build linux

package watcher

import (
	"path/filepath"

	"golang.org/x/sys/unix"
)

// statfs f_type magic numbers, see statfs(2).
const (
	magicNFS  = 0x6969
	magicSMB  = 0x517B
	magicCIFS = 0xFF534D42
	magicSMB2 = 0xFE534D42
	magicFUSE = 0x65735546
	magic9P   = 0x01021997
)

// DetectFilesystemType classifies the filesystem holding path. The parent
// directory is probed so a file that does not exist yet still resolves.
func DetectFilesystemType(path string) FilesystemType {
	var st unix.Statfs_t
	if err := unix.Statfs(filepath.Dir(path), &st); err != nil {
		return FSTypeUnknown
	}
	return classifyMagic(uint32(st.Type))
}

func classifyMagic(magic uint32) FilesystemType {
	switch magic {
	case magicNFS:
		return FSTypeNFS
	case magicSMB, magicCIFS, magicSMB2:
		return FSTypeSMB
	case magicFUSE:
		return FSTypeFUSE
	case magic9P:
		return FSType9P
	default:
		return FSTypeLocal
	}
}
