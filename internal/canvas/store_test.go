package canvas_test // 测试包

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpaint/internal/canvas"
	"chatpaint/internal/domain"
)

func stroke(phase domain.StrokePhase, x, y float64) domain.Stroke {
	return domain.Stroke{
		Status:      phase,
		Color:       "#000000",
		X:           x,
		Y:           y,
		CreatedDate: time.Now().UTC(),
	}
}

func TestStore_AppendAndList(t *testing.T) {
	s := canvas.NewStore()

	first := stroke(domain.StrokeStart, 1, 2)
	second := stroke(domain.StrokeInProgress, 3, 4)
	s.Append("lobby", first)
	s.Append("lobby", second)

	// 笔画按追加顺序返回
	got := s.List("lobby")
	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestStore_List_UnknownRoom(t *testing.T) {
	s := canvas.NewStore()

	// 未知房间返回空序列而不是 nil 或错误
	got := s.List("ghost")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_List_IsSnapshot(t *testing.T) {
	s := canvas.NewStore()
	s.Append("lobby", stroke(domain.StrokeStart, 1, 1))

	snapshot := s.List("lobby")
	s.Append("lobby", stroke(domain.StrokeFinish, 2, 2))

	// 之前取得的快照不受后续写入影响
	assert.Len(t, snapshot, 1)
	assert.Len(t, s.List("lobby"), 2)
}

func TestStore_Clear(t *testing.T) {
	s := canvas.NewStore()
	s.Append("lobby", stroke(domain.StrokeStart, 1, 1))
	s.Append("lobby", stroke(domain.StrokeFinish, 2, 2))

	s.Clear("lobby")

	assert.Empty(t, s.List("lobby"))

	// 清空后日志可以继续接收新笔画
	s.Append("lobby", stroke(domain.StrokeStart, 3, 3))
	assert.Len(t, s.List("lobby"), 1)
}

func TestStore_Clear_UnknownRoom(t *testing.T) {
	s := canvas.NewStore()

	// 清空未知房间是无害的空操作
	s.Clear("ghost")
	assert.Empty(t, s.List("ghost"))
}

func TestStore_RoomsAreIsolated(t *testing.T) {
	s := canvas.NewStore()
	s.Append("red", stroke(domain.StrokeStart, 1, 1))
	s.Append("blue", stroke(domain.StrokeStart, 2, 2))

	s.Clear("red")

	assert.Empty(t, s.List("red"))
	assert.Len(t, s.List("blue"), 1, "清空一个房间不应影响其他房间")
}

func TestStore_ConcurrentAppend(t *testing.T) {
	s := canvas.NewStore()

	const writers = 8
	const perWriter = 50
	var group sync.WaitGroup
	for i := 0; i < writers; i++ {
		group.Add(1)
		go func(i int) {
			defer group.Done()
			room := fmt.Sprintf("room-%d", i%2)
			for j := 0; j < perWriter; j++ {
				s.Append(room, stroke(domain.StrokeInProgress, float64(i), float64(j)))
			}
		}(i)
	}
	group.Wait()

	total := len(s.List("room-0")) + len(s.List("room-1"))
	assert.Equal(t, writers*perWriter, total)
}
