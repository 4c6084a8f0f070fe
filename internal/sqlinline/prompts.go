package sqlinline

const QSelectCommunityPrompts = `--sql 06e7d74a-242f-4815-9070-02a9cc6c18b0
select
    p.id::text,
    p.user_id::text,
    p.name,
    p.text,
    coalesce(p.source_image_url, ''),
    coalesce(p.attributes, '{}'::text[]),
    p.likes,
    p.is_public,
    p.author,
    p.created_at
from prompts p
where p.is_public
order by p.likes desc, p.created_at desc;
`

const QSelectLibraryPrompts = `--sql 67a0ae8d-837a-4c90-9422-b3d38d6a8865
select
    p.id::text,
    p.user_id::text,
    p.name,
    p.text,
    coalesce(p.source_image_url, ''),
    coalesce(p.attributes, '{}'::text[]),
    p.likes,
    p.is_public,
    p.author,
    p.created_at
from prompts p
where p.user_id = $1::uuid
order by p.created_at desc;
`

const QInsertPrompt = `--sql 7344d08d-9fe6-4135-baa9-3efc5afac22f
insert into prompts (user_id, name, text, source_image_url, attributes, likes, is_public, author)
values ($1::uuid, $2::text, $3::text, nullif($4::text, ''), $5::text[], 0, $6::boolean, $7::text)
returning id::text;
`

const QDeletePrompt = `--sql cc1807a1-2496-4bfa-99eb-3cfac1a1f41c
delete from prompts
where id = $1::uuid
  and user_id = $2::uuid;
`

// QAdjustPromptLikes applies a signed delta atomically and never drops below zero.
const QAdjustPromptLikes = `--sql 0abee3f2-7d01-44da-95fe-2d21a2933e31
update prompts
set likes = greatest(likes + $2::int, 0)
where id = $1::uuid
  and is_public
returning likes;
`

// MarkUpdatePrompt prefixes the dynamically built owner-scoped update.
const MarkUpdatePrompt = `--sql 578c74ba-7eb5-40d0-982a-05d84668d4b7`
