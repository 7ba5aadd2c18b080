package library

import (
	"context"

	"github.com/speakcast/speakcast/internal/model"
)

// Tree is the flattened view of the whole library (spec §6 "library tree").
// Callers reassemble the folder hierarchy from Folder.ParentID and locate
// each Source/Episode under its FolderID.
type Tree struct {
	Folders  []model.Folder
	Sources  []model.Source
	Episodes []model.Episode
}

// CreateFolder inserts a new folder, optionally nested under parentID.
func (s *Service) CreateFolder(ctx context.Context, name, parentID string) (*model.Folder, error) {
	f := &model.Folder{Name: name, ParentID: parentID}
	if err := s.store.CreateFolder(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// MoveFolder reparents a folder, rejecting moves that would create a cycle
// (spec §3 Folder invariant "no cycles"; cycle detection lives in
// [store.Store.MoveFolder]).
func (s *Service) MoveFolder(ctx context.Context, id, newParentID string) error {
	return s.store.MoveFolder(ctx, id, newParentID)
}

// LibraryTree returns every folder, source, and episode in the library
// (spec §6 "library tree").
func (s *Service) LibraryTree(ctx context.Context) (Tree, error) {
	folders, err := s.store.ListFolders(ctx)
	if err != nil {
		return Tree{}, err
	}

	folderIDs := make([]string, 0, len(folders)+1)
	folderIDs = append(folderIDs, "") // root
	for _, f := range folders {
		folderIDs = append(folderIDs, f.ID)
	}

	var sources []model.Source
	var episodes []model.Episode
	for _, fid := range folderIDs {
		srcs, err := s.store.ListSourcesInFolder(ctx, fid)
		if err != nil {
			return Tree{}, err
		}
		sources = append(sources, srcs...)

		eps, err := s.store.ListEpisodesInFolder(ctx, fid)
		if err != nil {
			return Tree{}, err
		}
		episodes = append(episodes, eps...)
	}

	return Tree{Folders: folders, Sources: sources, Episodes: episodes}, nil
}

// FolderPlaylist returns the ready episodes within folderID and its
// descendants, depth-first by folder name (spec §4.7 "Folder playlist").
func (s *Service) FolderPlaylist(ctx context.Context, folderID string) ([]model.Episode, error) {
	if folderID != "" {
		if _, err := s.store.GetFolder(ctx, folderID); err != nil {
			return nil, err
		}
	}
	return s.store.ListReadyEpisodesInFolderTree(ctx, folderID)
}
