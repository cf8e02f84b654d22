// Package git reads commit history of the site's own repository. It is used
// to date pages by their last commit rather than by file modification time.
package git
