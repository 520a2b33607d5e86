package pool

import (
	"fmt"
	"os/user"

	"github.com/docker/docker/api/types/mount"
)

// WorkDir is where the project is mounted inside hook containers.
const WorkDir = "/src"

// projectMount binds the project read-write: hooks such as formatters rewrite
// files in place.
func projectMount(path string) mount.Mount {
	return mount.Mount{
		Type:   mount.TypeBind,
		Source: path,
		Target: WorkDir,
	}
}

func tmpMount() mount.Mount {
	return mount.Mount{
		Type:   mount.TypeTmpfs,
		Target: "/tmp",
	}
}

var userCurrent = user.Current

// hostUser returns "uid:gid" of the invoking user so files written by the
// container stay owned by them.
func hostUser() (string, error) {
	u, err := userCurrent()
	if err != nil {
		return "", fmt.Errorf("looking up current user: %w", err)
	}
	return u.Uid + ":" + u.Gid, nil
}
