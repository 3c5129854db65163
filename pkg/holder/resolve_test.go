// Copyright 2018-2022 CERN
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// In applying this license, CERN does not waive the privileges and immunities
// granted to it by virtue of its status as an Intergovernmental Organization
// or submit itself to any jurisdiction.

package holder_test

import (
	"context"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/oliverfjones0/permgraph/pkg/group/manager/memory"
	"github.com/oliverfjones0/permgraph/pkg/holder"
	"github.com/oliverfjones0/permgraph/pkg/node"
)

func bnode(b *node.Builder) node.Node {
	n, err := b.Build()
	Expect(err).ToNot(HaveOccurred())
	return n
}

func permissions(nodes []node.Localized) []string {
	perms := make([]string, 0, len(nodes))
	for _, ln := range nodes {
		perms = append(perms, ln.Node.Permission())
	}
	return perms
}

var _ = Describe("Inheritance resolution", func() {
	var (
		ctx  context.Context
		mgr  *memory.Manager
		user *holder.Holder
	)

	BeforeEach(func() {
		ctx = context.Background()
		mgr = memory.NewWithOptions()
		user = holder.NewUser(uuid.New(), holder.WithRegistry(mgr))
	})

	addGroup := func(name string, nodes ...node.Node) *holder.Holder {
		g, err := mgr.CreateGroup(ctx, name, 0)
		Expect(err).ToNot(HaveOccurred())
		for _, n := range nodes {
			g.Holder.AddNodeUnchecked(n)
		}
		return g.Holder
	}

	Describe("GetAllNodes", func() {
		It("merges inherited nodes in priority order", func() {
			addGroup("default",
				bnode(node.NewBuilder("spawn.use", true)),
			)
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())
			Expect(user.SetPermission(bnode(node.NewBuilder("chat.use", true)))).To(Succeed())

			all := user.GetAllNodes(nil, node.AllowAll())
			// equal-rank nodes fall back to the lexicographic tiebreaker
			Expect(permissions(all)).To(Equal([]string{"chat.use", "group.default", "spawn.use"}))
		})

		It("tags inherited nodes with the group that supplied them", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())

			all := user.GetAllNodes(nil, node.AllowAll())
			for _, ln := range all {
				if ln.Node.Permission() == "spawn.use" {
					Expect(ln.Location).To(Equal("default"))
				} else {
					Expect(ln.Location).To(Equal(user.ObjectName()))
				}
			}
		})

		It("terminates on cyclic group graphs", func() {
			addGroup("a", bnode(node.NewBuilder("group.b", true)), bnode(node.NewBuilder("from.a", true)))
			addGroup("b", bnode(node.NewBuilder("group.a", true)), bnode(node.NewBuilder("from.b", true)))
			Expect(user.SetInheritGroup("a", "", "", 0)).To(Succeed())

			all := user.GetAllNodes(nil, node.AllowAll())
			perms := permissions(all)
			Expect(perms).To(ConsistOf("group.a", "group.b", "from.a", "from.b"))
		})

		It("lets a child assertion shadow an inherited one", func() {
			addGroup("default", bnode(node.NewBuilder("fly.use", false)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())
			Expect(user.SetPermission(bnode(node.NewBuilder("fly.use", true)))).To(Succeed())

			all := user.GetAllNodes(nil, node.AllowAll())
			flys := 0
			for _, ln := range all {
				if ln.Node.Permission() == "fly.use" {
					flys++
					Expect(ln.Node.Value()).To(BeTrue())
					Expect(ln.Location).To(Equal(user.ObjectName()))
				}
			}
			Expect(flys).To(Equal(1))
		})

		It("skips unknown groups silently", func() {
			Expect(user.SetInheritGroup("ghost", "", "", 0)).To(Succeed())
			all := user.GetAllNodes(nil, node.AllowAll())
			Expect(permissions(all)).To(ConsistOf("group.ghost"))
		})

		It("honors and never mutates the exclusion list", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())

			excluded := []string{"Default"}
			all := user.GetAllNodes(excluded, node.AllowAll())
			Expect(permissions(all)).To(ConsistOf("group.default"))
			Expect(excluded).To(Equal([]string{"Default"}))
		})

		It("ignores deny group nodes", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			user.AddNodeUnchecked(bnode(node.NewBuilder("group.default", false)))

			all := user.GetAllNodes(nil, node.AllowAll())
			Expect(permissions(all)).To(ConsistOf("group.default"))
		})

		It("filters parents by server scope", func() {
			addGroup("staff", bnode(node.NewBuilder("kick.use", true)))
			Expect(user.SetInheritGroup("staff", "s1", "", 0)).To(Succeed())

			c := node.AllowAll().WithContext(node.NewContextSet(
				node.ContextPair{Key: "server", Value: "s1"},
			))
			Expect(permissions(user.GetAllNodes(nil, c))).To(ConsistOf("group.staff", "kick.use"))

			c = node.AllowAll().WithContext(node.NewContextSet(
				node.ContextPair{Key: "server", Value: "s2"},
			))
			Expect(permissions(user.GetAllNodes(nil, c))).To(ConsistOf("group.staff"))
		})

		It("excludes global parents when global groups do not apply", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())

			c := node.AllowAll()
			c.ApplyGlobalGroups = false
			Expect(permissions(user.GetAllNodes(nil, c))).To(ConsistOf("group.default"))
		})

		It("walks nested inheritance", func() {
			addGroup("admin", bnode(node.NewBuilder("group.mod", true)), bnode(node.NewBuilder("ban.use", true)))
			addGroup("mod", bnode(node.NewBuilder("kick.use", true)))
			Expect(user.SetInheritGroup("admin", "", "", 0)).To(Succeed())

			all := user.GetAllNodes(nil, node.AllowAll())
			Expect(permissions(all)).To(ConsistOf("group.admin", "group.mod", "ban.use", "kick.use"))
		})
	})

	Describe("GetAllNodesFiltered", func() {
		It("keeps one effective verdict per permission", func() {
			addGroup("default", bnode(node.NewBuilder("fly.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())
			Expect(user.SetPermission(bnode(node.NewBuilder("fly.use", false).Server("s1")))).To(Succeed())

			c := node.AllowAll().WithContext(node.NewContextSet(
				node.ContextPair{Key: "server", Value: "s1"},
			))
			var fly *node.Localized
			for _, ln := range user.GetAllNodesFiltered(c) {
				if ln.Node.Permission() == "fly.use" {
					ln := ln
					Expect(fly).To(BeNil())
					fly = &ln
				}
			}
			Expect(fly).ToNot(BeNil())
			Expect(fly.Node.Value()).To(BeFalse())
		})

		It("filters by context tags", func() {
			Expect(user.SetPermission(bnode(node.NewBuilder("feature", true).WithContext("realm", "eu")))).To(Succeed())

			matching := node.AllowAll().WithContext(node.NewContextSet(
				node.ContextPair{Key: "realm", Value: "eu"},
			))
			Expect(permissions(user.GetAllNodesFiltered(matching))).To(ContainElement("feature"))

			other := node.AllowAll().WithContext(node.NewContextSet(
				node.ContextPair{Key: "realm", Value: "us"},
			))
			Expect(permissions(user.GetAllNodesFiltered(other))).ToNot(ContainElement("feature"))

			Expect(permissions(user.GetAllNodesFiltered(node.AllowAll()))).ToNot(ContainElement("feature"))
		})

		It("sees only own nodes when groups do not apply", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())

			c := node.AllowAll()
			c.ApplyGroups = false
			Expect(permissions(user.GetAllNodesFiltered(c))).To(ConsistOf("group.default"))
		})
	})

	Describe("ExportNodes", func() {
		It("exports one entry per permission", func() {
			addGroup("default", bnode(node.NewBuilder("spawn.use", true)))
			Expect(user.SetInheritGroup("default", "", "", 0)).To(Succeed())

			exported := user.ExportNodes(node.AllowAll(), false)
			Expect(exported).To(HaveKeyWithValue("spawn.use", true))
			Expect(exported).To(HaveKeyWithValue("group.default", true))
		})

		It("lowercases keys on request", func() {
			Expect(user.SetPermission(bnode(node.NewBuilder("Feature.Use", true)))).To(Succeed())
			exported := user.ExportNodes(node.AllowAll(), true)
			Expect(exported).To(HaveKeyWithValue("feature.use", true))
		})
	})

	Describe("shorthand export", func() {
		It("expands alternation segments", func() {
			sh := holder.NewUser(uuid.New(), holder.WithRegistry(mgr), holder.WithShorthand(true))
			Expect(sh.SetPermission(bnode(node.NewBuilder("build.(create|destroy)", true)))).To(Succeed())

			exported := sh.ExportNodes(node.AllowAll(), false)
			Expect(exported).To(HaveKeyWithValue("build.(create|destroy)", true))
			Expect(exported).To(HaveKeyWithValue("build.create", true))
			Expect(exported).To(HaveKeyWithValue("build.destroy", true))
		})

		It("does not expand without the flag", func() {
			Expect(user.SetPermission(bnode(node.NewBuilder("build.(create|destroy)", true)))).To(Succeed())
			exported := user.ExportNodes(node.AllowAll(), false)
			Expect(exported).To(HaveKey("build.(create|destroy)"))
			Expect(exported).ToNot(HaveKey("build.create"))
		})
	})
})
