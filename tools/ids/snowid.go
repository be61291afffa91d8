package ids

import (
	"strconv"
	"sync"
	"time"
)

// 连接 id：毫秒时间戳 | 10bit 网关节点 | 12bit 序列。
// 只要求网关重启之间唯一，不做跨机房协调。

const (
	nodeBits = 10
	seqBits  = 12

	maxNode = (1 << nodeBits) - 1
	seqMask = (1 << seqBits) - 1
)

var epochMS = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()

type source struct {
	mu     sync.Mutex
	node   int64
	lastMS int64
	seq    int64
}

var src = &source{node: 1}

// SetNodeID 绑定网关节点号（0~1023），boot 时调用一次；越界回落到 1。
func SetNodeID(node int64) {
	src.mu.Lock()
	defer src.mu.Unlock()
	if node < 0 || node > maxNode {
		node = 1
	}
	src.node = node
}

// Generate 生成一个新的 id。
func Generate() int64 {
	return src.next()
}

// GenerateString 连接管理器用的字符串形式。
func GenerateString() string {
	return strconv.FormatInt(Generate(), 10)
}

func (s *source) next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	for now < s.lastMS {
		// 时钟回拨：原地等到追平
		time.Sleep(time.Duration(s.lastMS-now) * time.Millisecond)
		now = time.Now().UnixMilli()
	}
	if now == s.lastMS {
		s.seq = (s.seq + 1) & seqMask
		if s.seq == 0 {
			// 同毫秒序列用尽，等下一毫秒
			for now <= s.lastMS {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.seq = 0
	}
	s.lastMS = now

	return ((now - epochMS) << (nodeBits + seqBits)) | (s.node << seqBits) | s.seq
}
