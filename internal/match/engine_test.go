package match

import (
	"testing"

	"github.com/racktic/bookmarket/pkg/models"
)

var testEngine *Engine

func engine(t *testing.T) *Engine {
	t.Helper()
	if testEngine == nil {
		e, err := NewEngine()
		if err != nil {
			t.Fatalf("NewEngine: %v", err)
		}
		testEngine = e
	}
	return testEngine
}

func item(title string, meta models.MetaInfo) *models.Item {
	return &models.Item{Title: title, Meta: meta}
}

func need(title string, meta models.MetaInfo) *models.Need {
	return &models.Need{Title: title, Meta: meta}
}

func TestMatches_TitleAndMeta(t *testing.T) {
	e := engine(t)

	tests := []struct {
		name string
		item *models.Item
		need *models.Need
		want bool
	}{
		{
			name: "title containment plus exact teacher",
			item: item("微积分教程", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			need: need("微积分", models.MetaInfo{Teacher: "王老师", Author: "李四", Course: "高等代数"}),
			want: true,
		},
		{
			name: "title matches but no metadata agreement",
			item: item("微积分教程", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			need: need("微积分", models.MetaInfo{Teacher: "李老师", Author: "李四", Course: "线性代数"}),
			want: false,
		},
		{
			name: "metadata agrees but titles unrelated",
			item: item("线性代数", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			need: need("大学物理", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			want: false,
		},
		{
			name: "author hard match carries metadata",
			item: item("数据挖掘导论", models.MetaInfo{Teacher: "甲", Author: "韩家炜", Course: "数据库"}),
			need: need("数据挖掘", models.MetaInfo{Teacher: "乙", Author: "韩家炜", Course: "机器学习"}),
			want: true,
		},
		{
			name: "course soft match carries metadata",
			item: item("概率论基础", models.MetaInfo{Teacher: "甲", Author: "A", Course: "概率论与数理统计"}),
			need: need("概率论", models.MetaInfo{Teacher: "乙", Author: "B", Course: "概率论"}),
			want: true,
		},
		{
			name: "stop-word-only title never matches",
			item: item("教材教程", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			need: need("课程书籍", models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}),
			want: false,
		},
		{
			name: "empty title never matches",
			item: item("", models.MetaInfo{Teacher: "王老师"}),
			need: need("微积分", models.MetaInfo{Teacher: "王老师"}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.Matches(tt.item, tt.need); got != tt.want {
				t.Errorf("Matches() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatches_Symmetric(t *testing.T) {
	e := engine(t)

	a := models.MetaInfo{Teacher: "王老师", Author: "张三", Course: "微积分"}
	b := models.MetaInfo{Teacher: "王老师", Author: "李四", Course: "高等代数"}

	// Swap which side plays item and which plays need; the predicate
	// must not care.
	forward := e.Matches(item("微积分教程", a), need("微积分", b))
	backward := e.Matches(item("微积分", b), need("微积分教程", a))
	if forward != backward {
		t.Errorf("predicate is asymmetric: forward=%v backward=%v", forward, backward)
	}
	if !forward {
		t.Error("expected a match in both directions")
	}
}

func TestTokensOverlap(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want bool
	}{
		{"identical token", []string{"微积分"}, []string{"微积分"}, true},
		{"containment a in b", []string{"代数"}, []string{"线性代数"}, true},
		{"containment b in a", []string{"线性代数"}, []string{"代数"}, true},
		{"disjoint", []string{"物理"}, []string{"化学"}, false},
		{"empty left", nil, []string{"微积分"}, false},
		{"both empty", nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TokensOverlap(tt.a, tt.b); got != tt.want {
				t.Errorf("TokensOverlap(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestTokens_RemovesStopWords(t *testing.T) {
	e := engine(t)

	toks := e.Tokenizer().Tokens("微积分教程")
	for _, tok := range toks {
		if _, stop := stopWords[tok]; stop {
			t.Errorf("stop word %q survived tokenization", tok)
		}
	}
	if len(toks) == 0 {
		t.Fatal("expected at least one content token")
	}
}

func TestKeywordHit(t *testing.T) {
	if !KeywordHit("数字逻辑与数字集成电路", []string{"逻辑"}) {
		t.Error("substring keyword should hit")
	}
	if KeywordHit("数字逻辑", []string{"模拟"}) {
		t.Error("unrelated keyword should miss")
	}
	if !KeywordHit("Linear Algebra", []string{"algebra"}) {
		t.Error("keyword matching should be case-insensitive")
	}
}

func TestPriceOverlap(t *testing.T) {
	tests := []struct {
		name                           string
		aLo, aHi, bLo, bHi             float64
		want                           bool
	}{
		{"interleaved ranges", 10, 20, 15, 25, true},
		{"disjoint ranges", 10, 20, 21, 30, false},
		{"touching bounds are eligible", 10, 20, 20, 30, true},
		{"equal degenerate ranges", 20, 20, 20, 20, true},
		{"containment", 0, 100, 30, 40, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PriceOverlap(tt.aLo, tt.aHi, tt.bLo, tt.bHi); got != tt.want {
				t.Errorf("PriceOverlap = %v, want %v", got, tt.want)
			}
		})
	}
}
