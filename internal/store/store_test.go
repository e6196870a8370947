// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunicBabble Contributors

package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/runicbabble/runicbabble/internal/store"
)

var _ = Describe("ParseLocation", func() {
	DescribeTable("locations",
		func(location, want string, ok bool) {
			path, err := store.ParseLocation(location)
			if !ok {
				Expect(err).To(HaveOccurred())
				return
			}
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(want))
		},
		Entry("relative", "sqlite:///runic.sqlite", "runic.sqlite", true),
		Entry("absolute", "sqlite:////var/lib/runic.sqlite", "/var/lib/runic.sqlite", true),
		Entry("nested relative", "sqlite:///data/runic.sqlite", "data/runic.sqlite", true),
		Entry("empty path", "sqlite:///", "", false),
		Entry("other scheme", "postgres://localhost/runic", "", false),
		Entry("bare path", "runic.sqlite", "", false),
	)
})

var _ = Describe("WebhookStore", func() {
	var (
		ctx      context.Context
		location string
		s        *store.WebhookStore
	)

	BeforeEach(func() {
		ctx = context.Background()
		location = "sqlite:///" + filepath.Join(GinkgoT().TempDir(), "db", "runic.sqlite")

		var err error
		s, err = store.Open(ctx, location)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(s.Close()).To(Succeed())
	})

	It("reports unknown channels as absent", func() {
		_, ok, err := s.Get(ctx, "123")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("stores and replaces webhooks per channel", func() {
		Expect(s.Put(ctx, store.Webhook{ChannelID: "1", ID: "w1", Token: "t1"})).To(Succeed())
		Expect(s.Put(ctx, store.Webhook{ChannelID: "2", ID: "w2", Token: "t2"})).To(Succeed())
		Expect(s.Put(ctx, store.Webhook{ChannelID: "1", ID: "w3", Token: "t3"})).To(Succeed())

		w, ok, err := s.Get(ctx, "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(w).To(Equal(store.Webhook{ChannelID: "1", ID: "w3", Token: "t3"}))

		n, err := s.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(2))
	})

	It("deletes webhooks", func() {
		Expect(s.Put(ctx, store.Webhook{ChannelID: "1", ID: "w1", Token: "t1"})).To(Succeed())
		Expect(s.Delete(ctx, "1")).To(Succeed())
		Expect(s.Delete(ctx, "1")).To(Succeed())

		_, ok, err := s.Get(ctx, "1")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())
	})

	It("survives reopening", func() {
		Expect(s.Put(ctx, store.Webhook{ChannelID: "9", ID: "w9", Token: "t9"})).To(Succeed())
		Expect(s.Close()).To(Succeed())

		var err error
		s, err = store.Open(ctx, location)
		Expect(err).NotTo(HaveOccurred())

		w, ok, err := s.Get(ctx, "9")
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(w.Token).To(Equal("t9"))
	})

	It("handles concurrent writers", func() {
		var wg sync.WaitGroup
		for i := range 16 {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				id := fmt.Sprint(i)
				Expect(s.Put(ctx, store.Webhook{ChannelID: id, ID: "w" + id, Token: "t"})).To(Succeed())
			}()
		}
		wg.Wait()

		n, err := s.Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(16))
	})
})
