package accountstree

import (
	"bytes"

	"github.com/floxnode/floxnode/merkle"
	"github.com/floxnode/floxnode/primitives"
)

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func cloneBranch(n *Node) *Node {
	clone := &Node{Kind: KindBranch, Prefix: append([]byte(nil), n.Prefix...)}
	clone.Children = n.Children
	return clone
}

// getFromNode walks node for path, returning the zero Account if path
// is not present.
func getFromNode(store NodeStore, node *Node, path []byte) (primitives.Account, error) {
	if node == nil {
		return primitives.Account{}, nil
	}
	switch node.Kind {
	case KindTerminal:
		if bytes.Equal(node.Prefix, path) {
			return node.Account, nil
		}
		return primitives.Account{}, nil
	default: // KindBranch
		cp := commonPrefixLen(node.Prefix, path)
		if cp != len(node.Prefix) || cp >= len(path) {
			return primitives.Account{}, nil
		}
		child := node.Children[path[cp]]
		if !child.Present {
			return primitives.Account{}, nil
		}
		childNode, ok, err := store.GetNode(child.Hash)
		if err != nil {
			return primitives.Account{}, err
		}
		if !ok {
			return primitives.Account{}, ErrNotFound
		}
		return getFromNode(store, childNode, path[cp+1:])
	}
}

// putIntoNode inserts or replaces the account at path, splitting a
// terminal or a branch when the key paths diverge.
func putIntoNode(store NodeStore, hashFn merkle.HashFunc, node *Node, path []byte, acct primitives.Account) (*Node, error) {
	if node == nil {
		n := &Node{Kind: KindTerminal, Prefix: append([]byte(nil), path...), Account: acct}
		if err := store.PutNode(n.Hash(hashFn), n); err != nil {
			return nil, err
		}
		return n, nil
	}

	switch node.Kind {
	case KindTerminal:
		cp := commonPrefixLen(node.Prefix, path)
		if cp == len(node.Prefix) && cp == len(path) {
			n := &Node{Kind: KindTerminal, Prefix: node.Prefix, Account: acct}
			if err := store.PutNode(n.Hash(hashFn), n); err != nil {
				return nil, err
			}
			return n, nil
		}

		branch := &Node{Kind: KindBranch, Prefix: append([]byte(nil), path[:cp]...)}

		oldNibble := node.Prefix[cp]
		oldChild := &Node{Kind: KindTerminal, Prefix: append([]byte(nil), node.Prefix[cp+1:]...), Account: node.Account}
		if err := store.PutNode(oldChild.Hash(hashFn), oldChild); err != nil {
			return nil, err
		}
		branch.Children[oldNibble] = ChildRef{Present: true, Hash: oldChild.Hash(hashFn), Prefix: oldChild.Prefix}

		newNibble := path[cp]
		newChild := &Node{Kind: KindTerminal, Prefix: append([]byte(nil), path[cp+1:]...), Account: acct}
		if err := store.PutNode(newChild.Hash(hashFn), newChild); err != nil {
			return nil, err
		}
		branch.Children[newNibble] = ChildRef{Present: true, Hash: newChild.Hash(hashFn), Prefix: newChild.Prefix}

		if err := store.PutNode(branch.Hash(hashFn), branch); err != nil {
			return nil, err
		}
		return branch, nil

	default: // KindBranch
		cp := commonPrefixLen(node.Prefix, path)
		if cp == len(node.Prefix) {
			nibble := path[cp]
			child := node.Children[nibble]
			var childNode *Node
			if child.Present {
				cn, ok, err := store.GetNode(child.Hash)
				if err != nil {
					return nil, err
				}
				if !ok {
					return nil, ErrNotFound
				}
				childNode = cn
			}
			newChild, err := putIntoNode(store, hashFn, childNode, path[cp+1:], acct)
			if err != nil {
				return nil, err
			}
			newBranch := cloneBranch(node)
			newBranch.Children[nibble] = ChildRef{Present: true, Hash: newChild.Hash(hashFn), Prefix: newChild.Prefix}
			if err := store.PutNode(newBranch.Hash(hashFn), newBranch); err != nil {
				return nil, err
			}
			return newBranch, nil
		}

		top := &Node{Kind: KindBranch, Prefix: append([]byte(nil), path[:cp]...)}

		oldNibble := node.Prefix[cp]
		oldSub := cloneBranch(node)
		oldSub.Prefix = append([]byte(nil), node.Prefix[cp+1:]...)
		if err := store.PutNode(oldSub.Hash(hashFn), oldSub); err != nil {
			return nil, err
		}
		top.Children[oldNibble] = ChildRef{Present: true, Hash: oldSub.Hash(hashFn), Prefix: oldSub.Prefix}

		newNibble := path[cp]
		newTerm := &Node{Kind: KindTerminal, Prefix: append([]byte(nil), path[cp+1:]...), Account: acct}
		if err := store.PutNode(newTerm.Hash(hashFn), newTerm); err != nil {
			return nil, err
		}
		top.Children[newNibble] = ChildRef{Present: true, Hash: newTerm.Hash(hashFn), Prefix: newTerm.Prefix}

		if err := store.PutNode(top.Hash(hashFn), top); err != nil {
			return nil, err
		}
		return top, nil
	}
}

// deleteFromNode removes the account at path, merging a branch back
// into a single node when exactly one child remains.
func deleteFromNode(store NodeStore, hashFn merkle.HashFunc, node *Node, path []byte) (*Node, bool, error) {
	if node == nil {
		return nil, false, nil
	}
	switch node.Kind {
	case KindTerminal:
		if bytes.Equal(node.Prefix, path) {
			return nil, true, nil
		}
		return node, false, nil

	default: // KindBranch
		cp := commonPrefixLen(node.Prefix, path)
		if cp != len(node.Prefix) || cp >= len(path) {
			return node, false, nil
		}
		nibble := path[cp]
		child := node.Children[nibble]
		if !child.Present {
			return node, false, nil
		}
		childNode, ok, err := store.GetNode(child.Hash)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, ErrNotFound
		}

		newChild, found, err := deleteFromNode(store, hashFn, childNode, path[cp+1:])
		if err != nil {
			return nil, false, err
		}
		if !found {
			return node, false, nil
		}

		newBranch := cloneBranch(node)
		if newChild == nil {
			newBranch.Children[nibble] = ChildRef{}
		} else {
			newBranch.Children[nibble] = ChildRef{Present: true, Hash: newChild.Hash(hashFn), Prefix: newChild.Prefix}
		}

		count, lastIdx := 0, -1
		for i, c := range newBranch.Children {
			if c.Present {
				count++
				lastIdx = i
			}
		}

		switch {
		case count == 0:
			// Unreachable: a branch always enters deletion with >= 2
			// children, so removing one always leaves at least one.
			return nil, true, nil
		case count == 1:
			var mergedChild *Node
			if lastIdx == int(nibble) && newChild != nil {
				mergedChild = newChild
			} else {
				mc, ok, err := store.GetNode(newBranch.Children[lastIdx].Hash)
				if err != nil {
					return nil, false, err
				}
				if !ok {
					return nil, false, ErrNotFound
				}
				mergedChild = mc
			}
			merged := mergeBranchChild(newBranch.Prefix, byte(lastIdx), mergedChild)
			if err := store.PutNode(merged.Hash(hashFn), merged); err != nil {
				return nil, false, err
			}
			return merged, true, nil
		default:
			if err := store.PutNode(newBranch.Hash(hashFn), newBranch); err != nil {
				return nil, false, err
			}
			return newBranch, true, nil
		}
	}
}

func mergeBranchChild(branchPrefix []byte, nibble byte, child *Node) *Node {
	newPrefix := make([]byte, 0, len(branchPrefix)+1+len(child.Prefix))
	newPrefix = append(newPrefix, branchPrefix...)
	newPrefix = append(newPrefix, nibble)
	newPrefix = append(newPrefix, child.Prefix...)

	if child.Kind == KindTerminal {
		return &Node{Kind: KindTerminal, Prefix: newPrefix, Account: child.Account}
	}
	merged := &Node{Kind: KindBranch, Prefix: newPrefix}
	merged.Children = child.Children
	return merged
}
