package registry_test // 测试包

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatpaint/internal/registry"
)

// --- 测试房间创建 ---

func TestRegistry_CreateRoom(t *testing.T) {
	r := registry.New()

	// Act
	err := r.CreateRoom("lobby")

	// Assert
	assert.NoError(t, err, "首次创建房间不应失败")
	assert.Equal(t, []string{"lobby"}, r.RoomNames())
}

func TestRegistry_CreateRoom_Duplicate(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	// Act: 同名房间再次创建
	err := r.CreateRoom("lobby")

	// Assert: 返回冲突错误且房间列表不变
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrRoomExists))
	assert.Equal(t, []string{"lobby"}, r.RoomNames())
}

func TestRegistry_RoomNames_CreationOrder(t *testing.T) {
	r := registry.New()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.CreateRoom(name))
	}

	// 房间列表按创建顺序返回，不按字典序
	assert.Equal(t, []string{"c", "a", "b"}, r.RoomNames())
}

// --- 测试加入/离开 ---

func TestRegistry_JoinRoom(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	// Act
	err := r.JoinRoom("lobby", "conn-1", "user-1", "Alice")

	// Assert
	assert.NoError(t, err)
	assert.True(t, r.IsMember("lobby", "user-1"))
	assert.Equal(t, []string{"lobby"}, r.RoomsForConnection("conn-1"))

	name, ok := r.DisplayName("lobby", "user-1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)
}

func TestRegistry_JoinRoom_RoomNotFound(t *testing.T) {
	r := registry.New()

	err := r.JoinRoom("ghost", "conn-1", "user-1", "Alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrRoomNotFound))
	assert.Empty(t, r.RoomsForConnection("conn-1"), "失败的加入不应留下索引条目")
}

func TestRegistry_JoinRoom_EmptyDisplayName(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	// 空白昵称在查找房间之前就被拒绝
	for _, name := range []string{"", "   ", "\t"} {
		err := r.JoinRoom("lobby", "conn-1", "user-1", name)
		require.Error(t, err)
		assert.True(t, errors.Is(err, registry.ErrEmptyDisplayName))
	}
	assert.False(t, r.IsMember("lobby", "user-1"))
}

func TestRegistry_JoinRoom_SameUserTwice(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	// 同一 userId 用新连接重复加入被当作冲突拒绝
	err := r.JoinRoom("lobby", "conn-2", "user-1", "Alice2")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrAlreadyJoined))
	assert.Empty(t, r.RoomsForConnection("conn-2"))

	// 原有成员身份不受影响
	name, ok := r.DisplayName("lobby", "user-1")
	assert.True(t, ok)
	assert.Equal(t, "Alice", name)
}

func TestRegistry_JoinRoom_NameTaken(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	err := r.JoinRoom("lobby", "conn-2", "user-2", "Alice")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNameTaken))
	assert.False(t, r.IsMember("lobby", "user-2"))
}

func TestRegistry_DisplayName_ScopedPerRoom(t *testing.T) {
	// 昵称唯一性按房间隔离：同一昵称可以出现在不同房间
	r := registry.New()
	require.NoError(t, r.CreateRoom("red"))
	require.NoError(t, r.CreateRoom("blue"))

	assert.NoError(t, r.JoinRoom("red", "conn-1", "user-1", "Alice"))
	assert.NoError(t, r.JoinRoom("blue", "conn-2", "user-2", "Alice"))
}

func TestRegistry_JoinMultipleRooms_SameConnection(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("red"))
	require.NoError(t, r.CreateRoom("blue"))

	require.NoError(t, r.JoinRoom("red", "conn-1", "user-1", "Alice"))
	require.NoError(t, r.JoinRoom("blue", "conn-1", "user-1", "Alice"))

	// 反向索引按字典序返回
	assert.Equal(t, []string{"blue", "red"}, r.RoomsForConnection("conn-1"))
}

func TestRegistry_LeaveRoom(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	// Act
	err := r.LeaveRoom("lobby", "user-1")

	// Assert
	assert.NoError(t, err)
	assert.False(t, r.IsMember("lobby", "user-1"))
	assert.Empty(t, r.RoomsForConnection("conn-1"), "离开后索引条目应被清除")

	// 离开后昵称立即可被复用
	assert.NoError(t, r.JoinRoom("lobby", "conn-2", "user-2", "Alice"))
}

func TestRegistry_LeaveRoom_NotMember(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	err := r.LeaveRoom("lobby", "user-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotMember))
}

func TestRegistry_LeaveRoom_RoomNotFound(t *testing.T) {
	r := registry.New()

	err := r.LeaveRoom("ghost", "user-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrRoomNotFound))
}

// --- 测试消息 ---

func TestRegistry_AppendMessage(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	// Act
	msg, err := r.AppendMessage("lobby", "user-1", "hello")

	// Assert: 消息以发送者的昵称入账，时间戳由服务端分配
	assert.NoError(t, err)
	assert.Equal(t, "Alice", msg.UserName)
	assert.Equal(t, "hello", msg.Text)
	assert.False(t, msg.CreatedDate.IsZero())

	msgs, err := r.Messages("lobby", "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, msg, msgs[0])
}

func TestRegistry_AppendMessage_NotMember(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	_, err := r.AppendMessage("lobby", "user-1", "hello")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotMember))
}

func TestRegistry_AppendMessage_EmptyText(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	_, err := r.AppendMessage("lobby", "user-1", "   ")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrEmptyText))

	msgs, err := r.Messages("lobby", "user-1")
	require.NoError(t, err)
	assert.Empty(t, msgs, "被拒绝的消息不应入账")
}

func TestRegistry_Messages_OrderAndMonotonicTimestamps(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	for i := 0; i < 50; i++ {
		_, err := r.AppendMessage("lobby", "user-1", fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := r.Messages("lobby", "user-1")
	require.NoError(t, err)
	require.Len(t, msgs, 50)
	for i := 1; i < len(msgs); i++ {
		assert.Equal(t, fmt.Sprintf("msg-%d", i), msgs[i].Text, "消息应按到达顺序返回")
		assert.False(t, msgs[i].CreatedDate.Before(msgs[i-1].CreatedDate), "时间戳在房间内应单调不减")
	}
}

func TestRegistry_Messages_SurviveMemberLeave(t *testing.T) {
	// 聊天记录属于房间而非成员，作者离开后消息仍然保留
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))
	require.NoError(t, r.JoinRoom("lobby", "conn-2", "user-2", "Bob"))

	_, err := r.AppendMessage("lobby", "user-1", "goodbye")
	require.NoError(t, err)
	require.NoError(t, r.LeaveRoom("lobby", "user-1"))

	msgs, err := r.Messages("lobby", "user-2")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Alice", msgs[0].UserName)
}

func TestRegistry_Messages_NotMember(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	_, err := r.Messages("lobby", "outsider")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotMember))
}

// --- 测试成员列表 ---

func TestRegistry_ParticipantNames(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))
	require.NoError(t, r.JoinRoom("lobby", "conn-2", "user-2", "Bob"))

	names, err := r.ParticipantNames("lobby", "user-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob"}, names, "成员按加入顺序返回")
}

func TestRegistry_ParticipantNames_NotMember(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))
	require.NoError(t, r.JoinRoom("lobby", "conn-1", "user-1", "Alice"))

	_, err := r.ParticipantNames("lobby", "outsider")

	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotMember))
}

// --- 测试断线清理原语 ---

func TestRegistry_RemoveMemberByConnection(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("red"))
	require.NoError(t, r.CreateRoom("blue"))
	require.NoError(t, r.JoinRoom("red", "conn-1", "user-1", "Alice"))
	require.NoError(t, r.JoinRoom("blue", "conn-1", "user-1", "Alice"))
	require.NoError(t, r.JoinRoom("red", "conn-2", "user-2", "Bob"))

	// Act: 清理 conn-1 的所有成员身份
	r.RemoveMemberByConnection("conn-1")

	// Assert: conn-1 全部移除，conn-2 不受影响
	assert.False(t, r.IsMember("red", "user-1"))
	assert.False(t, r.IsMember("blue", "user-1"))
	assert.Empty(t, r.RoomsForConnection("conn-1"))
	assert.True(t, r.IsMember("red", "user-2"))
}

func TestRegistry_RemoveMember_Unknown(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	assert.False(t, r.RemoveMember("lobby", "ghost"))
	assert.False(t, r.RemoveMember("no-such-room", "ghost"))
}

// --- 并发测试 ---

func TestRegistry_ConcurrentJoins(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	const n = 64
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.JoinRoom("lobby",
				fmt.Sprintf("conn-%d", i),
				fmt.Sprintf("user-%d", i),
				fmt.Sprintf("name-%d", i))
		}(i)
	}
	wg.Wait()

	// 全部不同的用户并发加入都应成功
	for i, err := range errs {
		assert.NoError(t, err, "join %d", i)
	}
	names, err := r.ParticipantNames("lobby", "user-0")
	require.NoError(t, err)
	assert.Len(t, names, n)
}

func TestRegistry_ConcurrentJoins_SameDisplayName(t *testing.T) {
	// 并发抢占同一昵称时只有一个成功
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = r.JoinRoom("lobby",
				fmt.Sprintf("conn-%d", i),
				fmt.Sprintf("user-%d", i),
				"Alice")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, errors.Is(err, registry.ErrNameTaken))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestRegistry_ConcurrentMessages(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.CreateRoom("lobby"))

	const writers = 8
	const perWriter = 25
	for i := 0; i < writers; i++ {
		require.NoError(t, r.JoinRoom("lobby",
			fmt.Sprintf("conn-%d", i),
			fmt.Sprintf("user-%d", i),
			fmt.Sprintf("name-%d", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_, err := r.AppendMessage("lobby", fmt.Sprintf("user-%d", i), "hi")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	msgs, err := r.Messages("lobby", "user-0")
	require.NoError(t, err)
	require.Len(t, msgs, writers*perWriter)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedDate.Before(msgs[i-1].CreatedDate),
			"并发写入下时间戳仍应单调不减")
	}
}
