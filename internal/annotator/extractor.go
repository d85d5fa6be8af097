package annotator

import (
	"strings"
	"unicode/utf8"
)

// Extractor 标注提取器接口
// 实现方对指定类别集合内的文本片段产出标注
type Extractor interface {
	// Name 返回提取器名称
	Name() string

	// Extract 从文本中提取指定类型的标注
	// types为空时表示提取该提取器支持的全部类型
	Extract(text string, types []AnnotationType) []Annotation
}

// ContextScorer 上下文置信度评分器
// 置信度 = 基础分 + 长度加成（封顶） + 窗口内临床关键词加成
type ContextScorer struct {
	Base         float64  // 基础置信度
	LengthNorm   float64  // 长度归一化因子
	LengthCap    float64  // 长度加成上限
	KeywordBonus float64  // 每个关键词命中的加成
	WindowRunes  int      // 上下文窗口半径（字符数）
	Keywords     []string // 临床上下文关键词
}

// DefaultContextScorer 返回默认评分器
func DefaultContextScorer() *ContextScorer {
	return &ContextScorer{
		Base:         0.5,
		LengthNorm:   10,
		LengthCap:    0.3,
		KeywordBonus: 0.05,
		WindowRunes:  50,
		Keywords:     []string{"诊断", "治疗", "症状", "病理", "临床", "检查"},
	}
}

// Score 计算术语在给定位置的置信度
// pos为术语在text中的字节偏移
func (s *ContextScorer) Score(term string, text string, pos int) float64 {
	score := s.Base

	lengthBonus := float64(utf8.RuneCountInString(term)) / s.LengthNorm
	if lengthBonus > s.LengthCap {
		lengthBonus = s.LengthCap
	}
	score += lengthBonus

	window := contextWindow(text, pos, pos+len(term), s.WindowRunes)
	for _, kw := range s.Keywords {
		if strings.Contains(window, kw) {
			score += s.KeywordBonus
		}
	}

	if score > 1.0 {
		score = 1.0
	}
	return score
}

// contextWindow 截取跨度前后各radius个字符的上下文
// 截断点对齐到字符边界，避免切断多字节字符
func contextWindow(text string, start, end, radius int) string {
	left := start
	for i := 0; i < radius && left > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:left])
		left -= size
	}
	right := end
	if right > len(text) {
		right = len(text)
	}
	for i := 0; i < radius && right < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[right:])
		right += size
	}
	return text[left:right]
}
