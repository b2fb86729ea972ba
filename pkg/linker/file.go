package linker

import (
	"os"

	"github.com/hcyang1106/ppc64v1-linker/pkg/utils"
)

type File struct {
	Name    string
	Content []byte
	Parent  *File
}

func NewFile(filename string) *File {
	content, err := os.ReadFile(filename)
	utils.MustNo(err)
	return &File{
		Name:    filename,
		Content: content,
	}
}

func NewFileNoFatal(filename string) *File {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil
	}
	return &File{
		Name:    filename,
		Content: content,
	}
}

// archive members, long names resolved against the archive string table
func ReadArchiveMembers(file *File) []*File {
	utils.Assert(GetFileTypeFromContent(file.Content) == FileTypeArchive)

	pos := 8
	var strTab []byte
	var files []*File
	for len(file.Content)-pos > 1 {
		if pos%2 == 1 {
			pos++
		}
		hdr := ArHdr{}
		utils.Read[ArHdr](file.Content[pos:], &hdr)
		dataStart := pos + AhdrSize
		pos = dataStart + hdr.GetSize()
		dataEnd := pos
		contents := file.Content[dataStart:dataEnd]

		if hdr.IsSymtab() {
			continue
		}
		if hdr.IsStrTab() {
			strTab = contents
			continue
		}

		files = append(files, &File{
			Name:    hdr.ReadName(strTab),
			Content: contents,
			Parent:  file,
		})
	}
	return files
}
