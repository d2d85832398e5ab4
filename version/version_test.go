package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfo(t *testing.T) {
	saved := Commit
	t.Cleanup(func() { Commit = saved })
	Commit = "abc1234def5678"

	info := GetInfo()
	assert.Equal(t, runtime.GOOS+"/"+runtime.GOARCH, info.Platform)
	assert.Equal(t, "slotsync "+Version+" (abc1234)", info.Short())
	assert.Contains(t, info.String(), "platform: "+info.Platform)
}

func TestUserAgent(t *testing.T) {
	assert.Contains(t, UserAgent(), "slotsync/"+Version)
}
