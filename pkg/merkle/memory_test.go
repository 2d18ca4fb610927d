package merkle_test

import (
	"context"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/folio/pkg/llm"
	"github.com/papercomputeco/folio/pkg/merkle"
)

var _ = Describe("MemoryStorer", func() {
	var (
		storer *merkle.MemoryStorer
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		storer = merkle.NewMemoryStorer()
	})

	AfterEach(func() {
		storer.Close()
	})

	Describe("Put and Get", func() {
		It("stores and retrieves a node", func() {
			node := merkle.NewNode("test content", nil)

			Expect(storer.Put(ctx, node)).To(Succeed())

			retrieved, err := storer.Get(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Hash).To(Equal(node.Hash))
			Expect(retrieved.Content).To(Equal(node.Content))
			Expect(retrieved.ParentHash).To(BeNil())
		})

		It("stores and retrieves a node with parent", func() {
			parent := merkle.NewNode("parent", nil)
			child := merkle.NewNode("child", parent)

			Expect(storer.Put(ctx, parent)).To(Succeed())
			Expect(storer.Put(ctx, child)).To(Succeed())

			retrieved, err := storer.Get(ctx, child.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ParentHash).NotTo(BeNil())
			Expect(*retrieved.ParentHash).To(Equal(parent.Hash))
		})

		It("returns ErrNotFound for non-existent hash", func() {
			_, err := storer.Get(ctx, "nonexistent")
			Expect(err).To(HaveOccurred())

			var notFoundErr merkle.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
			Expect(err.Error()).To(ContainSubstring("nonexistent"))
		})

		It("is idempotent for duplicate puts", func() {
			node := merkle.NewNode("test", nil)

			Expect(storer.Put(ctx, node)).To(Succeed())
			Expect(storer.Put(ctx, node)).To(Succeed())

			nodes, _ := storer.List(ctx)
			Expect(nodes).To(HaveLen(1))
		})

		It("rejects nil nodes", func() {
			err := storer.Put(ctx, nil)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("nil node"))
		})

		It("rejects writes after Close", func() {
			Expect(storer.Close()).To(Succeed())

			err := storer.Put(ctx, merkle.NewNode("late", nil))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Has", func() {
		It("returns true for existing node", func() {
			node := merkle.NewNode("test", nil)
			storer.Put(ctx, node)

			exists, err := storer.Has(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		It("returns false for non-existent hash", func() {
			exists, err := storer.Has(ctx, "nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("GetByParent", func() {
		It("returns children of a parent", func() {
			parent := merkle.NewNode("parent", nil)
			child1 := merkle.NewNode("child1", parent)
			child2 := merkle.NewNode("child2", parent)

			storer.Put(ctx, parent)
			storer.Put(ctx, child1)
			storer.Put(ctx, child2)

			children, err := storer.GetByParent(ctx, &parent.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(children).To(HaveLen(2))
		})

		It("returns root nodes when parentHash is nil", func() {
			root1 := merkle.NewNode("root1", nil)
			root2 := merkle.NewNode("root2", nil)
			child := merkle.NewNode("child", root1)

			storer.Put(ctx, root1)
			storer.Put(ctx, root2)
			storer.Put(ctx, child)

			roots, err := storer.GetByParent(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))
		})
	})

	Describe("List", func() {
		It("returns all nodes in insertion order", func() {
			node1 := merkle.NewNode("node1", nil)
			node2 := merkle.NewNode("node2", node1)
			node3 := merkle.NewNode("node3", node2)

			storer.Put(ctx, node1)
			storer.Put(ctx, node2)
			storer.Put(ctx, node3)

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(3))
			Expect(nodes[0].Hash).To(Equal(node1.Hash))
			Expect(nodes[2].Hash).To(Equal(node3.Hash))
		})

		It("returns empty slice for empty store", func() {
			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})
	})

	Describe("Leaves", func() {
		It("returns all leaf nodes", func() {
			root := merkle.NewNode("root", nil)
			child := merkle.NewNode("child", root)
			leaf := merkle.NewNode("leaf", child)

			storer.Put(ctx, root)
			storer.Put(ctx, child)
			storer.Put(ctx, leaf)

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(1))
			Expect(leaves[0].Hash).To(Equal(leaf.Hash))
		})
	})

	Describe("Ancestry and Descendants", func() {
		var root, child, grandchild *merkle.Node

		BeforeEach(func() {
			root = merkle.NewNode("root", nil)
			child = merkle.NewNode("child", root)
			grandchild = merkle.NewNode("grandchild", child)

			storer.Put(ctx, root)
			storer.Put(ctx, child)
			storer.Put(ctx, grandchild)
		})

		It("returns path from node to root", func() {
			ancestry, err := storer.Ancestry(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ancestry).To(HaveLen(3))
			Expect(ancestry[0].Content).To(Equal("grandchild"))
			Expect(ancestry[2].Content).To(Equal("root"))
		})

		It("returns path from root to node", func() {
			path, err := storer.Descendants(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Content).To(Equal("root"))
			Expect(path[2].Content).To(Equal("grandchild"))
		})

		It("reports depth", func() {
			depth, err := storer.Depth(ctx, root.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(0))

			depth, err = storer.Depth(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(2))
		})

		It("fails for an unknown hash", func() {
			_, err := storer.Ancestry(ctx, "missing")
			Expect(err).To(BeAssignableToTypeOf(merkle.ErrNotFound{}))
		})
	})

	Describe("Delete", func() {
		It("removes a leaf and turns its parent back into a leaf", func() {
			parent := merkle.NewNode("parent", nil)
			child := merkle.NewNode("child", parent)
			Expect(storer.Put(ctx, parent)).To(Succeed())
			Expect(storer.Put(ctx, child)).To(Succeed())

			Expect(storer.Delete(ctx, child.Hash)).To(Succeed())

			has, err := storer.Has(ctx, child.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(has).To(BeFalse())

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(1))
			Expect(leaves[0].Hash).To(Equal(parent.Hash))

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
		})

		It("refuses to delete a parent", func() {
			parent := merkle.NewNode("parent", nil)
			child := merkle.NewNode("child", parent)
			Expect(storer.Put(ctx, parent)).To(Succeed())
			Expect(storer.Put(ctx, child)).To(Succeed())

			Expect(storer.Delete(ctx, parent.Hash)).To(MatchError(merkle.ErrHasChildren))
		})

		It("returns ErrNotFound for an unknown hash", func() {
			err := storer.Delete(ctx, "nonexistent")

			var notFoundErr merkle.ErrNotFound
			Expect(err).To(BeAssignableToTypeOf(notFoundErr))
		})
	})

	Describe("Exchanges", func() {
		It("deduplicates a repeated question and answer", func() {
			put := func() {
				q := merkle.NewNode(merkle.Turn{Role: llm.RoleUser, Content: "What is Go?"}, nil)
				a := merkle.NewNode(merkle.Turn{Role: llm.RoleAssistant, Content: "A language."}, q)
				Expect(storer.Put(ctx, q)).To(Succeed())
				Expect(storer.Put(ctx, a)).To(Succeed())
			}

			put()
			put()

			nodes, _ := storer.List(ctx)
			Expect(nodes).To(HaveLen(2))
		})

		It("branches when the same question gets a different answer", func() {
			q := merkle.NewNode(merkle.Turn{Role: llm.RoleUser, Content: "What is 2+2?"}, nil)
			a1 := merkle.NewNode(merkle.Turn{Role: llm.RoleAssistant, Content: "4"}, q)
			a2 := merkle.NewNode(merkle.Turn{Role: llm.RoleAssistant, Content: "Four."}, q)

			storer.Put(ctx, q)
			storer.Put(ctx, a1)
			storer.Put(ctx, a2)

			leaves, _ := storer.Leaves(ctx)
			Expect(leaves).To(HaveLen(2))
			roots, _ := storer.Roots(ctx)
			Expect(roots).To(HaveLen(1))
		})
	})

	It("is safe for concurrent writers", func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer GinkgoRecover()
				Expect(storer.Put(ctx, merkle.NewNode("shared", nil))).To(Succeed())
			}()
		}
		wg.Wait()

		nodes, _ := storer.List(ctx)
		Expect(nodes).To(HaveLen(1))
	})
})
