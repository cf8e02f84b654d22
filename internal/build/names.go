package build

import ferrors "git.home.luguber.info/inful/sitebuilder/internal/foundation/errors"

// TaskName is a strongly-typed identifier for a leaf task.
type TaskName string

// Canonical task names.
const (
	TaskInit       TaskName = "init"
	TaskStyles     TaskName = "styles"
	TaskPages      TaskName = "pages"
	TaskScripts    TaskName = "scripts"
	TaskAssets     TaskName = "assets"
	TaskSitemap    TaskName = "sitemap"
	TaskServe      TaskName = "serve"
	TaskWatch      TaskName = "watch"
	TaskResetPages TaskName = "reset_pages"
	TaskReload     TaskName = "reload"

	// Composite nodes.
	nameSeries   TaskName = "series"
	nameParallel TaskName = "parallel"
)

// Category is the error category used when a task fails with an unclassified error.
func (n TaskName) Category() ferrors.ErrorCategory {
	switch n {
	case TaskStyles:
		return ferrors.CategoryStyles
	case TaskPages, TaskResetPages:
		return ferrors.CategoryPages
	case TaskScripts:
		return ferrors.CategoryScripts
	case TaskAssets:
		return ferrors.CategoryAssets
	case TaskSitemap:
		return ferrors.CategorySitemap
	case TaskInit:
		return ferrors.CategoryFileSystem
	case TaskServe, TaskReload:
		return ferrors.CategoryServer
	case TaskWatch:
		return ferrors.CategoryWatch
	default:
		return ferrors.CategoryInternal
	}
}
