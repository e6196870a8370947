// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package render_test

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/image/font/gofont/goregular"

	"github.com/runicbabble/runicbabble/internal/glyph"
	"github.com/runicbabble/runicbabble/internal/madouji"
	"github.com/runicbabble/runicbabble/internal/raster"
	"github.com/runicbabble/runicbabble/internal/render"
	"github.com/runicbabble/runicbabble/internal/wrap"
)

const testFont = "test/goregular.ttf"

func TestRender(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Render Pipeline Suite")
}

var _ = Describe("Pipeline", func() {
	var (
		table    *glyph.Table
		pipeline *render.Pipeline
	)

	BeforeEach(func() {
		r := raster.New()
		Expect(r.AddFont(testFont, goregular.TTF)).To(Succeed())

		table = glyph.NewTable()
		pipeline = render.NewPipeline(table, r, testFont)
	})

	Describe("emote mode", func() {
		BeforeEach(func() {
			missing := table.Populate(madouji.EmojiNames(), glyph.MapCatalog{
				"mdj_a_": ":a:",
				"mdj_e_": ":e:",
			})
			Expect(missing).NotTo(BeEmpty())
		})

		It("renders composed vowels as emotes", func() {
			payload, ok := pipeline.Emotes("`mdj a'e'`")
			Expect(ok).To(BeTrue())
			Expect(payload.Content).To(Equal(":a::e:"))
		})

		It("renders every inline marker in a message", func() {
			payload, ok := pipeline.Emotes("`mdj a'` and `mdj e'`")
			Expect(ok).To(BeTrue())
			Expect(payload.Content).To(Equal(":a: and :e:"))
		})

		It("leaves plain messages alone", func() {
			_, ok := pipeline.Emotes("just chatting")
			Expect(ok).To(BeFalse())
		})
	})

	Describe("image mode", func() {
		decode := func(p *render.Payload) (width, height int) {
			Expect(p.File).NotTo(BeNil())
			img, err := png.Decode(bytes.NewReader(p.File.Data))
			Expect(err).NotTo(HaveOccurred())
			b := img.Bounds()
			return b.Dx(), b.Dy()
		}

		It("produces a PNG attachment", func() {
			payload, err := pipeline.Image(context.Background(), "hello", 32, wrap.NoWrap)
			Expect(err).NotTo(HaveOccurred())
			Expect(payload.File.Name).To(Equal(render.ImageFilename))
			Expect(payload.File.ContentType).To(Equal("image/png"))

			w, h := decode(payload)
			Expect(w).To(BeNumerically(">", 0))
			Expect(h).To(BeNumerically(">", 0))
		})

		It("grows taller and narrower when force wrapped", func() {
			flat, err := pipeline.Image(context.Background(), "aaaaaaaa", 32, wrap.NoWrap)
			Expect(err).NotTo(HaveOccurred())
			wrapped, err := pipeline.Image(context.Background(), "aaaaaaaa", 32,
				wrap.Directive{Mode: wrap.ModeForce, Width: 4})
			Expect(err).NotTo(HaveOccurred())

			fw, fh := decode(flat)
			ww, wh := decode(wrapped)
			Expect(ww).To(BeNumerically("<", fw))
			Expect(wh).To(BeNumerically(">", fh))
		})

		It("fails on an unknown font", func() {
			p := render.NewPipeline(table, raster.New(), "does/not/exist.ttf")
			_, err := p.Image(context.Background(), "a", 32, wrap.NoWrap)
			Expect(err).To(HaveOccurred())
		})
	})
})
