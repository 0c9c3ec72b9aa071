package listing

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"github.com/pkg/sftp"

	"github.com/snadrus/ssher/internal/vpath"
)

// SFTPProvider is implemented by transports that can open an SFTP
// subsystem on their connection.
type SFTPProvider interface {
	SFTP(ctx context.Context, target vpath.Target) (*sftp.Client, error)
}

// ListSFTP builds the same records as the batched listing from SFTP
// directory reads, marking symlinked directories the same way. Owner and
// group names are not available over SFTP, so the numeric ids stand in for
// them.
func ListSFTP(c *sftp.Client, dir string, showDot bool) ([]FileRecord, error) {
	if dir == "" {
		dir = "."
	}
	base := strings.TrimSuffix(dir, "/")

	specials := []string{base + "/.."}
	if showDot {
		specials = append(specials, base+"/.")
	}
	var records []FileRecord
	for _, p := range specials {
		fi, err := c.Lstat(p)
		if err != nil {
			return nil, fmt.Errorf("sftp lstat %s: %w", p, err)
		}
		records = append(records, sftpRecord(c, p, fi))
	}

	infos, err := c.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("sftp readdir %s: %w", dir, err)
	}
	for _, fi := range infos {
		if fi.Name() == "." || fi.Name() == ".." {
			continue
		}
		records = append(records, sftpRecord(c, base+"/"+fi.Name(), fi))
	}
	return records, nil
}

func sftpRecord(c *sftp.Client, p string, fi fs.FileInfo) FileRecord {
	rec := FileRecord{
		Access:      AccessString(fi.Mode()),
		SizeInBytes: fi.Size(),
		FileName:    p,
	}
	if st, ok := fi.Sys().(*sftp.FileStat); ok {
		rec.UserID = strconv.FormatUint(uint64(st.UID), 10)
		rec.GroupID = strconv.FormatUint(uint64(st.GID), 10)
		rec.UserName, rec.GroupName = rec.UserID, rec.GroupID
	}
	if resolved, err := c.RealPath(p); err == nil {
		rec.Dereferenced = resolved
	}
	if fi.Mode()&fs.ModeSymlink != 0 {
		if target, err := c.Stat(p); err == nil && target.IsDir() && !strings.HasSuffix(rec.Dereferenced, "/") {
			rec.Dereferenced += "/"
		}
	}
	return rec
}
