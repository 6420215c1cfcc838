package router

import (
	"fmt"
	"testing"
)

func benchTable(b *testing.B, n int) *Table {
	b.Helper()
	decls := []Declaration{
		get("/"),
		get("/about"),
		get("/blog/[id]"),
		get("/blog/[id]/comments/[cid]"),
		get("/docs/[...slug]"),
		get("/[[lang]]/help"),
		get("/files/[[...path]]"),
	}
	for i := 0; i < n; i++ {
		decls = append(decls, get(fmt.Sprintf("/section%d/[id]", i)))
	}
	t, err := Build(decls)
	if err != nil {
		b.Fatal(err)
	}
	return t
}

// === Match Benchmarks ===

func BenchmarkMatch_Literal(b *testing.B) {
	t := benchTable(b, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Match("/about")
	}
}

func BenchmarkMatch_Param(b *testing.B) {
	t := benchTable(b, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Match("/blog/42/comments/7")
	}
}

func BenchmarkMatch_CatchAll(b *testing.B) {
	t := benchTable(b, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Match("/docs/a/b/c/d")
	}
}

func BenchmarkMatch_Miss100(b *testing.B) {
	t := benchTable(b, 100)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.Match("/nowhere/at/all")
	}
}

func BenchmarkMatchPath_Canonicalize(b *testing.B) {
	t := benchTable(b, 0)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		t.MatchPath("//blog/./caf%C3%A9/")
	}
}

// === Concurrency Benchmarks ===

func BenchmarkRouterMatch_Parallel(b *testing.B) {
	r := New()
	r.Swap(benchTable(b, 20))
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			r.Match("/blog/42")
		}
	})
}
