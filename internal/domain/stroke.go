package domain

import "time"

// StrokePhase 表示一次自由绘制手势中单个采样点所处的阶段。
type StrokePhase string

const (
	StrokeStart      StrokePhase = "Start"      // 手势起点（落笔）
	StrokeInProgress StrokePhase = "InProgress" // 手势中间采样点
	StrokeFinish     StrokePhase = "Finish"     // 手势终点（抬笔）
)

// Valid 检查阶段取值是否为已知枚举值。
func (p StrokePhase) Valid() bool {
	switch p {
	case StrokeStart, StrokeInProgress, StrokeFinish:
		return true
	}
	return false
}

// Stroke 表示共享画布上的一个绘制采样点。
// 按到达顺序追加到房间的笔画日志中，追加后不可变。
type Stroke struct {
	Status      StrokePhase `json:"status"`      // 采样点所处的手势阶段
	Color       string      `json:"color"`       // 画笔颜色，例如 "#FF0000"
	X           float64     `json:"x"`           // 画布坐标
	Y           float64     `json:"y"`
	CreatedDate time.Time   `json:"createdDate"` // 服务端接收时间
}
